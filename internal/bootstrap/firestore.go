package bootstrap

import (
	"context"

	"cloud.google.com/go/firestore"

	fsstore "github.com/GregMSThompson/finance-tracker/internal/store/firestore"
)

func InitFirestore(ctx context.Context, projectID string) (*fsstore.Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return fsstore.New(client), nil
}
