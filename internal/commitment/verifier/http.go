package verifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "attestor/pkg/domain-errors"
)

// HTTPVerifier calls an external proving backend over HTTP. The backend
// owns the cryptography; this adapter only carries the pass/fail contract.
type HTTPVerifier struct {
	baseURL string
	circuit string
	client  *http.Client
}

type HTTPOption func(*HTTPVerifier)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(v *HTTPVerifier) { v.client = client }
}

func NewHTTP(baseURL, circuit string, opts ...HTTPOption) (*HTTPVerifier, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("verifier base URL is required")
	}
	if circuit == "" {
		return nil, fmt.Errorf("verifier circuit identity is required")
	}
	v := &HTTPVerifier{
		baseURL: baseURL,
		circuit: circuit,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

type verifyRequest struct {
	Circuit    string `json:"circuit"`
	Proof      string `json:"proof"`
	Commitment string `json:"commitment"`
	Role       string `json:"role"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, proof []byte, inputs PublicInputs) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		Circuit:    v.circuit,
		Proof:      base64.StdEncoding.EncodeToString(proof),
		Commitment: inputs.Commitment,
		Role:       inputs.Role.String(),
	})
	if err != nil {
		return false, fmt.Errorf("encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "proving backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, dErrors.Newf(dErrors.CodeUnavailable, "proving backend returned %d", resp.StatusCode)
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return decoded.Valid, nil
}

func (v *HTTPVerifier) CircuitIdentity() string { return v.circuit }

func (v *HTTPVerifier) IsProductionReady() bool { return true }
