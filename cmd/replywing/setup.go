package main

import (
	"fmt"
	"path/filepath"

	"github.com/replywing/replywing/authflow"
	"github.com/replywing/replywing/authflow/txnrepo"
	"github.com/replywing/replywing/backendapi"
	"github.com/replywing/replywing/httpclient"
	"github.com/replywing/replywing/internal/config"
	"github.com/replywing/replywing/session"
)

// Backend calls are throttled client-side. The token exchange inside the
// flow service does not go through this client.
const (
	backendRequestsPerSecond = 2
	backendBurst             = 4
)

func newFlowService() (*authflow.Service, session.Repo, config.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, nil, config.Client{}, err
	}
	if cfg.ClientID == "" {
		return nil, nil, config.Client{}, fmt.Errorf("REPLYWING_CLIENT_ID is not set")
	}

	txns, err := txnrepo.NewFileRepo(filepath.Join(cfg.StateDir, "transaction.json"))
	if err != nil {
		return nil, nil, config.Client{}, err
	}
	sessions, err := session.NewFileRepo(cfg.StateDir)
	if err != nil {
		return nil, nil, config.Client{}, err
	}

	backend := backendapi.NewClient(cfg.BackendURL, httpclient.New(backendRequestsPerSecond, backendBurst))

	svc, err := authflow.New(authflow.Config{
		ClientID:    cfg.ClientID,
		AuthURL:     cfg.AuthURL,
		TokenURL:    cfg.TokenURL,
		RedirectURI: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
	}, txns, sessions, backend)
	if err != nil {
		return nil, nil, config.Client{}, err
	}
	return svc, sessions, cfg, nil
}
