package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Gordian-Labs/tilde-mcp/config"
	"github.com/Gordian-Labs/tilde-mcp/x402"
	"github.com/Gordian-Labs/tilde-mcp/x402/client"
	"github.com/Gordian-Labs/tilde-mcp/x402/signers"
)

const defaultNumResults = 10

// SearchRequest is the argument shape of the search tool.
type SearchRequest struct {
	Query               string   `json:"query" validate:"required,min=5,max=500"`
	NumResults          int      `json:"numResults,omitempty" validate:"omitempty,gt=0"`
	MustIncludeKeywords []string `json:"mustIncludeKeywords" validate:"required,min=3,max=12,dive,min=2,max=50"`
	MustExcludeKeywords []string `json:"mustExcludeKeywords,omitempty" validate:"omitempty,max=5"`
	QualityReqs         []string `json:"qualityReqs,omitempty" validate:"omitempty,dive,oneof=reliability low-latency high-volume"`
	Temporal            string   `json:"temporal,omitempty" validate:"omitempty,oneof=real-time historical both unknown"`
}

// searchPayload is the wire request sent to the search service. Filter
// defaults are omitted entirely when empty so the backend applies no filter.
type searchPayload struct {
	Query                 string   `json:"query"`
	NumResults            int      `json:"numResults"`
	MustIncludeKeywords   []string `json:"mustIncludeKeywords"`
	MustExcludeKeywords   []string `json:"mustExcludeKeywords,omitempty"`
	QualityReqs           []string `json:"qualityReqs,omitempty"`
	Temporal              string   `json:"temporal,omitempty"`
	SupportedNetworks     []string `json:"supportedNetworks,omitempty"`
	SupportedAssets       []string `json:"supportedAssets,omitempty"`
	SupportedFacilitators []string `json:"supportedFacilitators,omitempty"`
}

// Searcher queries the paid search service. The search backend lives on one
// fixed origin, so a single signer is built at construction time from the
// first configured network and reused for the life of the process.
type Searcher struct {
	cfg      *config.Config
	log      *zap.Logger
	signer   x402.Signer
	validate *validator.Validate
}

// NewSearcher builds a Searcher, constructing the search payment signer from
// the first entry of the configured network list.
func NewSearcher(cfg *config.Config, log *zap.Logger) (*Searcher, error) {
	network := cfg.Networks[0]
	family := x402.Classify(network)

	key, err := cfg.KeyFor(family)
	if err != nil {
		return nil, err
	}

	signer, err := signers.New(family, key, network)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s search signer: %w", family, err)
	}

	return &Searcher{
		cfg:      cfg,
		log:      log,
		signer:   signer,
		validate: validator.New(),
	}, nil
}

// Search posts the query to the search service, paying the 402 challenge if
// one comes back, and returns the backend's JSON verbatim.
func (s *Searcher) Search(ctx context.Context, req *SearchRequest) (InvocationResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return failure(0, "invalid search request: "+err.Error(), nil), nil
	}

	numResults := req.NumResults
	if numResults == 0 {
		numResults = defaultNumResults
	}
	if numResults > s.cfg.MaxResults {
		numResults = s.cfg.MaxResults
	}

	payload := searchPayload{
		Query:                 req.Query,
		NumResults:            numResults,
		MustIncludeKeywords:   req.MustIncludeKeywords,
		MustExcludeKeywords:   req.MustExcludeKeywords,
		QualityReqs:           req.QualityReqs,
		Temporal:              req.Temporal,
		SupportedNetworks:     s.cfg.Networks,
		SupportedAssets:       s.cfg.Assets,
		SupportedFacilitators: s.cfg.Facilitators,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return InvocationResult{}, fmt.Errorf("failed to encode search payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SearchURL+"/search", bytes.NewReader(encoded))
	if err != nil {
		return InvocationResult{}, fmt.Errorf("failed to build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpClient := client.New(s.signer,
		client.WithTimeout(s.cfg.Timeout),
		client.WithPaymentCallbacks(paymentLoggers(s.log)),
	)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return resultFromError(err)
	}

	result := resultFromResponse(resp)
	s.log.Info("search finished",
		zap.Int("status", result.Status),
		zap.Bool("success", result.Success),
		zap.Int("numResults", numResults),
	)
	return result, nil
}
