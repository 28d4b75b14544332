package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdoctor/depdoctor/domain"
	"github.com/depdoctor/depdoctor/infrastructure/registry"
)

const testTimeout = 5 * time.Second

func TestLatest(t *testing.T) {
	t.Parallel()

	t.Run("should map the latest version document", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/left-pad/latest", request.URL.Path)
			writer.Header().Set("Content-Type", "application/json")
			_, _ = writer.Write([]byte(`{
				"version": "1.3.0",
				"peerDependencies": {"react": ">=16.0.0"},
				"deprecated": "use String.prototype.padStart instead",
				"repository": {"url": "git+https://github.com/left-pad/left-pad.git", "directory": "packages/core"}
			}`))
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		info, err := client.Latest(context.Background(), "left-pad")

		// then
		require.NoError(t, err)
		assert.Equal(t, "1.3.0", info.Version)
		assert.Equal(t, map[string]string{"react": ">=16.0.0"}, info.PeerDependencies)
		assert.Equal(t, "use String.prototype.padStart instead", info.Deprecated)
		assert.Equal(t, "git+https://github.com/left-pad/left-pad.git", info.RepositoryURL)
		assert.Equal(t, "packages/core", info.RepositoryDir)
	})

	t.Run("should report an unknown package without retrying", func(t *testing.T) {
		t.Parallel()

		// given
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requests.Add(1)
			writer.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		_, err := client.Latest(context.Background(), "no-such-package")

		// then
		var regErr *domain.RegistryError
		require.ErrorAs(t, err, &regErr)
		assert.True(t, regErr.NotFound)
		assert.Equal(t, "no-such-package", regErr.Package)
		assert.Equal(t, int32(1), requests.Load())
	})

	t.Run("should retry a transient failure exactly once", func(t *testing.T) {
		t.Parallel()

		// given
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requests.Add(1)
			writer.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		_, err := client.Latest(context.Background(), "flaky")

		// then
		var regErr *domain.RegistryError
		require.ErrorAs(t, err, &regErr)
		assert.False(t, regErr.NotFound)
		assert.Equal(t, int32(2), requests.Load())
	})

	t.Run("should recover when the retry succeeds", func(t *testing.T) {
		t.Parallel()

		// given
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if requests.Add(1) == 1 {
				writer.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = writer.Write([]byte(`{"version": "2.0.0"}`))
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		info, err := client.Latest(context.Background(), "flaky")

		// then
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", info.Version)
		assert.Equal(t, int32(2), requests.Load())
	})

	t.Run("should escape scoped package names", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/@types%2Fnode/latest", request.URL.EscapedPath())
			_, _ = writer.Write([]byte(`{"version": "22.0.0"}`))
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		info, err := client.Latest(context.Background(), "@types/node")

		// then
		require.NoError(t, err)
		assert.Equal(t, "22.0.0", info.Version)
	})

	t.Run("should fail on a malformed document", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_, _ = writer.Write([]byte(`{"version": `))
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		_, err := client.Latest(context.Background(), "broken")

		// then
		var regErr *domain.RegistryError
		require.ErrorAs(t, err, &regErr)
		assert.False(t, regErr.NotFound)
	})
}

func TestPeerDependencies(t *testing.T) {
	t.Parallel()

	t.Run("should return a version's declared peers", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/ui-kit/3.0.0", request.URL.Path)
			_, _ = writer.Write([]byte(`{"version": "3.0.0", "peerDependencies": {"react": ">=18.0.0"}}`))
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		peers, err := client.PeerDependencies(context.Background(), "ui-kit", "3.0.0")

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"react": ">=18.0.0"}, peers)
	})

	t.Run("should degrade to no peers for an unknown version", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		client := registry.New(server.URL, testTimeout)

		// when
		peers, err := client.PeerDependencies(context.Background(), "ui-kit", "99.0.0")

		// then
		require.NoError(t, err)
		assert.Nil(t, peers)
	})
}
