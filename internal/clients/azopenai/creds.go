package azopenai

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// TokenProvider hands out bearer tokens for the image edit API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type credentialTokenProvider struct {
	cred  azcore.TokenCredential
	scope string
}

// NewDefaultTokenProvider builds a provider backed by the default Azure
// credential chain (env vars, workload identity, managed identity, CLI).
// The credential caches and refreshes tokens internally.
func NewDefaultTokenProvider() (TokenProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("init azure credential: %w", err)
	}
	return &credentialTokenProvider{cred: cred, scope: cognitiveServicesScope}, nil
}

func (p *credentialTokenProvider) Token(ctx context.Context) (string, error) {
	tk, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return "", err
	}
	return tk.Token, nil
}
