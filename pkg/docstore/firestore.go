package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const healthCheckCollection = "_health_check"

// FirestoreConfig holds Firebase connection settings
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// FirestoreStore implements Store on top of Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirebaseApp initializes the Firebase app shared by Firestore and FCM
func NewFirebaseApp(ctx context.Context, cfg FirestoreConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// NewFirestore opens a Firestore client from an initialized Firebase app
func NewFirestore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open firestore: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string, dst any) error {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return err
	}
	return snap.DataTo(dst)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, src any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, src)
	return err
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, src any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, src)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (s *FirestoreStore) QueryLess(ctx context.Context, collection, field string, value int64, limit int) ([]Document, error) {
	snaps, err := s.client.Collection(collection).
		Where(field, "<", value).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, decode: snap.DataTo})
	}
	return docs, nil
}

func (s *FirestoreStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchSize {
		return ErrBatchTooLarge
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Delete(s.client.Collection(collection).Doc(id))
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(healthCheckCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
