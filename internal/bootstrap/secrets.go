package bootstrap

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretAccessor returns the payload of a named secret.
type SecretAccessor interface {
	Secret(ctx context.Context, name string) (string, error)
}

// Secret names
// projects/{project}/secrets/{id}/versions/{version}
// or a bare {id}, which resolves to the latest version in the configured project.

type secretManager struct {
	client    *secretmanager.Client
	projectID string
}

func newSecretManager(ctx context.Context, projectID string) (*secretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &secretManager{client: client, projectID: projectID}, nil
}

func (s *secretManager) versionName(name string) string {
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return name + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
}

func (s *secretManager) Secret(ctx context.Context, name string) (string, error) {
	res, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.versionName(name),
	})
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("secret %s not found", name)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Payload.Data)), nil
}

func (s *secretManager) Close() error {
	return s.client.Close()
}
