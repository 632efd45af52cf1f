package services

import (
	"context"
	"fmt"
	"io"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// Firebase bundles the Admin SDK clients used by the server
type Firebase struct {
	Auth    *auth.Client
	Storage *storage.Client
}

// InitFirebase initializes the Firebase Admin SDK. Storage is only set up when a bucket is configured.
func InitFirebase(ctx context.Context, credPath, bucket string) (*Firebase, error) {
	opt := option.WithCredentialsFile(credPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opt)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	fb := &Firebase{Auth: authClient}
	if bucket != "" {
		if fb.Storage, err = app.Storage(ctx); err != nil {
			return nil, err
		}
	}
	return fb, nil
}

// FirebaseIdentity creates login identities for customers and staff
type FirebaseIdentity struct {
	client *auth.Client
}

func NewFirebaseIdentity(client *auth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

// CreateUser registers an email/password identity and returns its uid.
// An email that is already registered resolves to the existing uid.
func (f *FirebaseIdentity) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	record, err := f.client.CreateUser(ctx, params)
	if err == nil {
		return record.UID, nil
	}
	if !auth.IsEmailAlreadyExists(err) {
		return "", fmt.Errorf("create firebase user: %w", err)
	}

	existing, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup firebase user: %w", err)
	}
	return existing.UID, nil
}

// FirebaseStorage writes payment proofs into the default bucket
type FirebaseStorage struct {
	client *storage.Client
}

func NewFirebaseStorage(client *storage.Client) *FirebaseStorage {
	return &FirebaseStorage{client: client}
}

// Upload stores r at objectPath and returns the public download URL.
func (s *FirebaseStorage) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	bucket, err := s.client.DefaultBucket()
	if err != nil {
		return "", err
	}

	w := bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", objectPath, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", w.Bucket, objectPath), nil
}
