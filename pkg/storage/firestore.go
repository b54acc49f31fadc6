package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDatabase implements Database using Google Cloud Firestore. Each
// household is one document in the "households" collection.
type FirestoreDatabase struct {
	client          *firestore.Client
	projectID       string
	database        string
	credentialsFile string
}

var _ Database = (*FirestoreDatabase)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreDatabase {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	credentialsFile := lflag.String("firestore-credentials-file", "", "Path to a service account key file (defaults to application default credentials)")

	f := &FirestoreDatabase{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.credentialsFile = *credentialsFile

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreDatabase) Validate() error {
	if f.credentialsFile != "" {
		if _, err := os.Stat(f.credentialsFile); err != nil {
			return fmt.Errorf("firestore-credentials-file: %w", err)
		}
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreDatabase) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	var opts []option.ClientOption
	if f.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.credentialsFile))
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreDatabase) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreDatabase) doc(householdID string) (*firestore.DocumentRef, error) {
	if err := checkHouseholdID(householdID); err != nil {
		return nil, err
	}
	return f.client.Collection("households").Doc(householdID), nil
}

// LoadState reads the household document. The blob is kept in a "json" string
// field next to its schema "version".
func (f *FirestoreDatabase) LoadState(ctx context.Context, householdID string) (types.State, int, error) {
	ref, err := f.doc(householdID)
	if err != nil {
		return types.State{}, 0, err
	}
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.State{}, 0, ErrStateNotFound
		}
		return types.State{}, 0, fmt.Errorf("failed to fetch state doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "state doc missing json", slog.String("householdID", householdID))
		return types.State{}, 0, fmt.Errorf("%w: document missing 'json' field: %w", ErrCorruptState, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "state doc json not string", slog.String("householdID", householdID))
		return types.State{}, 0, fmt.Errorf("%w: 'json' field is not a string", ErrCorruptState)
	}

	s, err := decodeState(jsonStr)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal state json", slog.String("householdID", householdID), slog.Any("err", err))
		return types.State{}, 0, err
	}
	return s, version, nil
}

// SaveState overwrites the household document.
func (f *FirestoreDatabase) SaveState(ctx context.Context, householdID string, state types.State, version int) error {
	jsonStr, err := encodeState(state)
	if err != nil {
		return err
	}
	ref, err := f.doc(householdID)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, map[string]interface{}{
		"json":      jsonStr,
		"version":   version,
		"updatedAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// DeleteState removes the household document.
func (f *FirestoreDatabase) DeleteState(ctx context.Context, householdID string) error {
	ref, err := f.doc(householdID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
