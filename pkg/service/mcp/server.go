package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "claimpilot"
	serverVersion = "1.0.0"
)

// ClaimReader looks up stored claims. *claim.UseCase satisfies it.
type ClaimReader interface {
	Get(ctx context.Context, id model.ClaimID) (*model.Claim, error)
}

// Server exposes the orchestrator as MCP tools
type Server struct {
	orch   *orchestrator.Orchestrator
	claims ClaimReader
	server *mcp.Server
}

type processMessageParams struct {
	Message string `json:"message" jsonschema:"The user's message, e.g. 'estimate my damage' or 'find a repair shop'"`
	ClaimID string `json:"claim_id,omitempty" jsonschema:"Claim ID such as C-2025-1A2B3C4D. Optional."`
}

type claimParams struct {
	ClaimID string `json:"claim_id" jsonschema:"Claim ID such as C-2025-1A2B3C4D"`
}

type estimateParams struct {
	ClaimID  string   `json:"claim_id" jsonschema:"Claim ID such as C-2025-1A2B3C4D"`
	Severity string   `json:"severity,omitempty" jsonschema:"Severity override: minor, moderate, severe, total_loss, catastrophic or critical"`
	Coverage *float64 `json:"coverage,omitempty" jsonschema:"Coverage ratio override between 0 and 1"`
}

type findProvidersParams struct {
	ClaimID    string `json:"claim_id" jsonschema:"Claim ID such as C-2025-1A2B3C4D"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of providers. Defaults to 3."`
	PriceTier  string `json:"price_tier,omitempty" jsonschema:"Price tier filter: $, $$, $$$ or $$$$"`
	Specialty  string `json:"specialty,omitempty" jsonschema:"Specialty filter, e.g. Paint"`
}

func NewServer(orch *orchestrator.Orchestrator, claims ClaimReader) *Server {
	s := &Server{
		orch:   orch,
		claims: claims,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_message",
		Description: "Send a message to the ClaimPilot assistant. It routes the request to the right agent and answers in text.",
	}, s.processMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_claim",
		Description: "Get a stored insurance claim as JSON",
	}, s.getClaim)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_agent_status",
		Description: "Get the status of each agent (ClaimPilot, FinTrack, ShopFinder, ClaimDrafting, ComplianceCheck) for a claim",
	}, s.getAgentStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "estimate_damage",
		Description: "Estimate damage cost, deductible and insurance payout of a claim",
		InputSchema: mustSchema[estimateParams](map[string][]any{
			"severity": severityEnum(),
		}),
	}, s.estimateDamage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_repair_shops",
		Description: "Recommend repair shops or service providers near the claim location",
		InputSchema: mustSchema[findProvidersParams](map[string][]any{
			"price_tier": {string(model.PriceBudget), string(model.PriceStandard), string(model.PricePremium), string(model.PriceLuxury)},
		}),
	}, s.findRepairShops)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "validate_claim_compliance",
		Description: "Check required fields, data quality and PII of a claim and report whether it is ready for submission",
	}, s.validateCompliance)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_insurance_email",
		Description: "Draft a professional email to the insurance company submitting the claim. Returns subject, recipients, body and a note on documents to attach.",
	}, s.generateEmail)

	return s
}

// Run serves MCP over stdio until the client disconnects or ctx is canceled
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Connect serves a single session over t
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, t, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect MCP session")
	}
	return session, nil
}

// HTTPHandler serves MCP over the streamable HTTP transport
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func severityEnum() []any {
	var values []any
	for _, s := range model.Severities() {
		values = append(values, string(s))
	}
	return values
}

// mustSchema infers the input schema of T and restricts the named properties to enums
func mustSchema[T any](enums map[string][]any) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(goerr.Wrap(err, "failed to infer tool input schema"))
	}
	for name, values := range enums {
		if prop, ok := schema.Properties[name]; ok {
			prop.Enum = values
		}
	}
	return schema
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	logging.From(ctx).Warn("MCP tool failed", "tool", tool, "error", err)
	res := textResult(err.Error())
	res.IsError = true
	return res
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return textResult(string(raw)), nil
}

func requireClaimID(id string) (model.ClaimID, error) {
	if id == "" {
		return "", goerr.Wrap(model.ErrInputMissing, "claim_id is required")
	}
	return model.ClaimID(id), nil
}

func (s *Server) processMessage(ctx context.Context, req *mcp.CallToolRequest, params *processMessageParams) (*mcp.CallToolResult, any, error) {
	resp := s.orch.ProcessMessage(ctx, &orchestrator.Message{
		Text:    params.Message,
		ClaimID: model.ClaimID(params.ClaimID),
	})

	res := textResult(resp.Message)
	res.IsError = !resp.Success
	return res, nil, nil
}

func (s *Server) getClaim(ctx context.Context, req *mcp.CallToolRequest, params *claimParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "get_claim", err), nil, nil
	}

	claim, err := s.claims.Get(ctx, id)
	if err != nil {
		return errorResult(ctx, "get_claim", err), nil, nil
	}

	res, err := jsonResult(claim)
	return res, nil, err
}

func (s *Server) getAgentStatus(ctx context.Context, req *mcp.CallToolRequest, params *claimParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "get_agent_status", err), nil, nil
	}

	res, err := jsonResult(map[string]any{
		"claim_id":     id,
		"agent_status": s.orch.AgentStatus(id),
	})
	return res, nil, err
}

func (s *Server) estimateDamage(ctx context.Context, req *mcp.CallToolRequest, params *estimateParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "estimate_damage", err), nil, nil
	}

	est, err := s.orch.Estimate(ctx, id, interfaces.EstimateOptions{
		Severity: model.Severity(params.Severity),
		Coverage: params.Coverage,
	})
	if err != nil {
		return errorResult(ctx, "estimate_damage", err), nil, nil
	}

	res, err := jsonResult(est)
	return res, nil, err
}

func (s *Server) findRepairShops(ctx context.Context, req *mcp.CallToolRequest, params *findProvidersParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "find_repair_shops", err), nil, nil
	}

	set, err := s.orch.FindProviders(ctx, id, interfaces.LocateOptions{
		MaxResults: params.MaxResults,
		PriceTier:  model.PriceTier(params.PriceTier),
		Specialty:  params.Specialty,
	})
	if err != nil {
		return errorResult(ctx, "find_repair_shops", err), nil, nil
	}

	res, err := jsonResult(set)
	return res, nil, err
}

func (s *Server) validateCompliance(ctx context.Context, req *mcp.CallToolRequest, params *claimParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "validate_claim_compliance", err), nil, nil
	}

	result, err := s.orch.CheckCompliance(ctx, id, nil)
	if err != nil {
		return errorResult(ctx, "validate_claim_compliance", err), nil, nil
	}

	res, err := jsonResult(result)
	return res, nil, err
}

func (s *Server) generateEmail(ctx context.Context, req *mcp.CallToolRequest, params *claimParams) (*mcp.CallToolResult, any, error) {
	id, err := requireClaimID(params.ClaimID)
	if err != nil {
		return errorResult(ctx, "generate_insurance_email", err), nil, nil
	}

	email, err := s.orch.Email(ctx, id)
	if err != nil {
		return errorResult(ctx, "generate_insurance_email", err), nil, nil
	}

	res, err := jsonResult(email)
	return res, nil, err
}
