// Package database mirrors confirmed engine state into MongoDB so the
// HTTP find API can serve rich filters. The mirror is a read replica;
// consensus state lives in the engine's own store.
package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tonicpow/dap-engine-go/config"
	"github.com/tonicpow/dap-engine-go/ledger"
	"github.com/tonicpow/dap-engine-go/object"
)

// Mirror collections
const (
	CollectionIdentities = "identities"
	CollectionBlocks     = "blocks"
	CollectionDapSpaces  = "dapspaces"
	CollectionContracts  = "dapcontracts"
)

const opTimeout = 5 * time.Second

// Connection is a mongo client bound to the mirror database
type Connection struct {
	*mongo.Client
	dbName string
}

// Connect establishes a connection using the configured mirror URL.
// An empty URL is a configuration error; callers gate on config.MongoURL.
func Connect(ctx context.Context) (*Connection, error) {
	url := config.MongoURL()
	if len(url) == 0 {
		return nil, errors.New("mirror url not configured")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	return &Connection{Client: client, dbName: config.DatabaseName()}, nil
}

func (c *Connection) collection(name string) *mongo.Collection {
	return c.Database(c.dbName).Collection(name)
}

// UpsertIdentity mirrors one confirmed identity
func (c *Connection) UpsertIdentity(ctx context.Context, bu *object.BlockchainUser) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"uid": bson.M{"$eq": bu.UID}}
	update := bson.M{"$set": bu}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection(CollectionIdentities).UpdateOne(ctx, filter, update, opts)
	return errors.Wrap(err, "upserting identity")
}

// UpsertBlock mirrors one mined block
func (c *Connection) UpsertBlock(ctx context.Context, b *ledger.Block) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"hash": bson.M{"$eq": b.Hash}}
	update := bson.M{"$set": b}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection(CollectionBlocks).UpdateOne(ctx, filter, update, opts)
	return errors.Wrap(err, "upserting block")
}

// UpsertContract mirrors one registered DAP contract
func (c *Connection) UpsertContract(ctx context.Context, dapid string, contract *object.DapContract) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"dapid": bson.M{"$eq": dapid}}
	update := bson.M{"$set": bson.M{"dapid": dapid, "contract": contract}}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection(CollectionContracts).UpdateOne(ctx, filter, update, opts)
	return errors.Wrap(err, "upserting contract")
}

// UpsertDapData replaces a DAP's mirrored object collection
func (c *Connection) UpsertDapData(ctx context.Context, dapid string, objects []object.OwnedObject) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"dapId": bson.M{"$eq": dapid}}
	update := bson.M{"$set": bson.M{"dapId": dapid, "objects": objects}}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection(CollectionDapSpaces).UpdateOne(ctx, filter, update, opts)
	return errors.Wrap(err, "upserting dap data")
}

// GetStateDocs returns documents from a mirror collection for a filter
func (c *Connection) GetStateDocs(ctx context.Context, collectionName string, limit, skip int64, filter bson.M) ([]bson.M, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := c.collection(collectionName).Find(ctx, filter, &options.FindOptions{
		Skip:  &skip,
		Limit: &limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "finding documents")
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var records []bson.M
	for cur.Next(ctx) {
		var record bson.M
		if err = cur.Decode(&record); err != nil {
			return nil, errors.Wrap(err, "decoding document")
		}
		records = append(records, record)
	}
	if err = cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountCollectionDocs returns the number of mirrored records matching a
// filter
func (c *Connection) CountCollectionDocs(ctx context.Context, collectionName string, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := c.collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "counting documents")
	}
	return count, nil
}

// ClearState drops all mirror collections
func (c *Connection) ClearState(ctx context.Context) error {
	for _, name := range []string{CollectionIdentities, CollectionBlocks, CollectionDapSpaces, CollectionContracts} {
		if err := c.collection(name).Drop(ctx); err != nil {
			return errors.Wrapf(err, "dropping %s", name)
		}
	}
	return nil
}
