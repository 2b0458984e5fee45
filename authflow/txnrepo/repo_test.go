package txnrepo_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/replywing/replywing/authflow/txnrepo"
	"github.com/stretchr/testify/require"
)

func repos(t *testing.T) map[string]txnrepo.Repo {
	t.Helper()

	fileRepo, err := txnrepo.NewFileRepo(filepath.Join(t.TempDir(), "txn.json"))
	require.NoError(t, err)

	return map[string]txnrepo.Repo{
		"inmemory": txnrepo.NewInMemoryRepo(),
		"file":     fileRepo,
	}
}

func TestPutGetDelete(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get()
			require.ErrorIs(t, err, txnrepo.ErrNotFound)

			txn := &txnrepo.Transaction{
				State:        "state-1",
				CodeVerifier: "verifier-1",
				RedirectURI:  "http://127.0.0.1:8976/callback",
				CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
			}
			require.NoError(t, repo.Put(txn))

			got, err := repo.Get()
			require.NoError(t, err)
			require.Equal(t, txn.State, got.State)
			require.Equal(t, txn.CodeVerifier, got.CodeVerifier)
			require.Equal(t, txn.RedirectURI, got.RedirectURI)

			require.NoError(t, repo.Delete())
			_, err = repo.Get()
			require.ErrorIs(t, err, txnrepo.ErrNotFound)

			// Deleting again is not an error
			require.NoError(t, repo.Delete())
		})
	}
}

func TestPutReplacesPendingTransaction(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Put(&txnrepo.Transaction{State: "old", CodeVerifier: "old-verifier"}))
			require.NoError(t, repo.Put(&txnrepo.Transaction{State: "new", CodeVerifier: "new-verifier"}))

			got, err := repo.Get()
			require.NoError(t, err)
			require.Equal(t, "new", got.State)
			require.Equal(t, "new-verifier", got.CodeVerifier)
		})
	}
}

func TestPutValidation(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, repo.Put(nil))
			require.Error(t, repo.Put(&txnrepo.Transaction{CodeVerifier: "v"}))
		})
	}
}

func TestFileRepoSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txn.json")

	first, err := txnrepo.NewFileRepo(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(&txnrepo.Transaction{State: "s", CodeVerifier: "v"}))

	// A second repo over the same path sees the pending transaction, as a
	// fresh process handling the redirect would.
	second, err := txnrepo.NewFileRepo(path)
	require.NoError(t, err)
	got, err := second.Get()
	require.NoError(t, err)
	require.Equal(t, "v", got.CodeVerifier)
}
