package spaces_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusgen/statusgen/internal/backup"
	"github.com/statusgen/statusgen/internal/backup/spaces"
	"github.com/statusgen/statusgen/internal/provider"
)

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>site-backups</Name>
  <Prefix>backups/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>backups/2026-10-12.tar.gz</Key>
    <LastModified>2026-10-12T03:00:00.000Z</LastModified>
    <ETag>&quot;0cc175b9c0f1b6a831c399e269772661&quot;</ETag>
    <Size>1048576</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <Contents>
    <Key>backups/2026-10-13.tar.gz</Key>
    <LastModified>2026-10-13T03:00:00.000Z</LastModified>
    <ETag>&quot;92eb5ffee6ae2fec3ad71c777531578f&quot;</ETag>
    <Size>2097152</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
</ListBucketResult>`

const accessDenied = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message><BucketName>site-backups</BucketName><RequestId>1</RequestId></Error>`

func newFakeStore(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			if r.Method != http.MethodHead {
				_, _ = w.Write([]byte(accessDenied))
			}
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/site-backups/":
			assert.Equal(t, "2", r.URL.Query().Get("list-type"))
			assert.Equal(t, "backups/", r.URL.Query().Get("prefix"))
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(listResponse))
		case r.Method == http.MethodHead && strings.HasPrefix(r.URL.Path, "/site-backups/backups/"):
			w.Header().Set("Last-Modified", time.Date(2026, 10, 13, 3, 0, 0, 0, time.UTC).Format(http.TimeFormat))
			w.Header().Set("Content-Length", "2097152")
			w.Header().Set("ETag", `"92eb5ffee6ae2fec3ad71c777531578f"`)
			w.Header().Set("Content-Type", "application/gzip")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newClient(t *testing.T, server *httptest.Server) *spaces.Client {
	t.Helper()
	client, err := spaces.NewClient(spaces.ClientConfig{
		Endpoint:  server.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "site-backups",
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func TestClient_ListObjects(t *testing.T) {
	server := newFakeStore(t, http.StatusOK)
	defer server.Close()

	objects, err := newClient(t, server).ListObjects(context.Background(), backup.DefaultPrefix)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "backups/2026-10-13.tar.gz", objects[1].Key)
	assert.Equal(t, int64(2097152), objects[1].SizeBytes)
	assert.Equal(t, time.Date(2026, 10, 13, 3, 0, 0, 0, time.UTC), objects[1].LastModified)
	assert.Equal(t, "92eb5ffee6ae2fec3ad71c777531578f", objects[1].Checksum)

	latest, ok := backup.Latest(objects)
	require.True(t, ok)
	assert.Equal(t, "backups/2026-10-13.tar.gz", latest.Key)
}

func TestClient_ListObjects_AccessDenied(t *testing.T) {
	server := newFakeStore(t, http.StatusForbidden)
	defer server.Close()

	_, err := newClient(t, server).ListObjects(context.Background(), backup.DefaultPrefix)
	require.Error(t, err)
	assert.True(t, provider.IsTransport(err))
	assert.Contains(t, err.Error(), "spaces: list objects")
}

func TestClient_StatObject(t *testing.T) {
	server := newFakeStore(t, http.StatusOK)
	defer server.Close()

	obj, err := newClient(t, server).StatObject(context.Background(), "backups/2026-10-13.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "backups/2026-10-13.tar.gz", obj.Key)
	assert.Equal(t, int64(2097152), obj.SizeBytes)
	assert.Equal(t, "92eb5ffee6ae2fec3ad71c777531578f", obj.Checksum)
}

func TestClient_StatObject_Missing(t *testing.T) {
	server := newFakeStore(t, http.StatusOK)
	defer server.Close()

	_, err := newClient(t, server).StatObject(context.Background(), "elsewhere/file")
	require.Error(t, err)
	assert.True(t, provider.IsTransport(err))
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := spaces.NewClient(spaces.ClientConfig{Endpoint: "nyc3.digitaloceanspaces.com"})
	assert.Error(t, err)
}

func TestNewClient_Endpoints(t *testing.T) {
	for _, endpoint := range []string{
		"nyc3.digitaloceanspaces.com",
		"https://nyc3.digitaloceanspaces.com/",
		"http://localhost:9000",
	} {
		t.Run(endpoint, func(t *testing.T) {
			client, err := spaces.NewClient(spaces.ClientConfig{
				Endpoint:  endpoint,
				AccessKey: "a",
				SecretKey: "s",
				Bucket:    "b",
				Logger:    zerolog.Nop(),
			})
			require.NoError(t, err, fmt.Sprintf("endpoint %q", endpoint))
			assert.Equal(t, spaces.ProviderName, client.Name())
		})
	}
}
