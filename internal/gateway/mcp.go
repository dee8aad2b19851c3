package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

const mcpServerVersion = "1.0.0"

// mcpHandler exposes the admin operations as MCP tools over streamable
// HTTP. It sits behind the same auth middleware as the REST routes.
func (g *Gateway) mcpHandler() http.Handler {
	srv := server.NewMCPServer(
		"riddhi-scheduler",
		mcpServerVersion,
		server.WithInstructions("Inspect and control riddhi's background finance jobs: status, history, manual runs and enable/disable."),
		server.WithToolCapabilities(false),
	)
	srv.AddTools(g.mcpTools()...)
	return server.NewStreamableHTTPServer(srv,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)
}

func (g *Gateway) mcpTools() []server.ServerTool {
	jobName := mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Job name, e.g. recurring_transactions"),
	)
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("scheduler_status",
				mcp.WithDescription("List every job with its schedule, enabled flag, next run and last finished execution."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: g.toolStatus,
		},
		{
			Tool: mcp.NewTool("job_history",
				mcp.WithDescription("Recent executions of one job, newest first."),
				mcp.WithReadOnlyHintAnnotation(true),
				jobName,
				mcp.WithNumber("limit", mcp.Description("Maximum rows, 1 to 100 (default 10)")),
			),
			Handler: g.toolHistory,
		},
		{
			Tool: mcp.NewTool("trigger_job",
				mcp.WithDescription("Run a job now. Returns the result, which reports a skip when the job is already running."),
				mcp.WithDestructiveHintAnnotation(false),
				jobName,
			),
			Handler: g.toolTrigger,
		},
		{
			Tool: mcp.NewTool("enable_job",
				mcp.WithDescription("Enable a job's cron schedule."),
				mcp.WithIdempotentHintAnnotation(true),
				jobName,
			),
			Handler: g.toolToggle(true),
		},
		{
			Tool: mcp.NewTool("disable_job",
				mcp.WithDescription("Disable a job's cron schedule. Runs already in flight finish normally."),
				mcp.WithIdempotentHintAnnotation(true),
				jobName,
			),
			Handler: g.toolToggle(false),
		},
	}
}

func (g *Gateway) toolStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := g.admin.GetAllJobStatuses(ctx)
	return toolResult(status, err)
}

func (g *Gateway) toolHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := g.admin.GetJobHistory(ctx, name, req.GetInt("limit", execution.DefaultHistoryLimit))
	return toolResult(rows, err)
}

func (g *Gateway) toolTrigger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := g.limiter.Allow(bucketTrigger); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := g.admin.TriggerJob(ctx, name)
	if err == nil {
		g.audit.Log(security.AuditEvent{Type: security.EventJobTrigger, Job: name, Detail: "mcp: " + outcome(res)})
	}
	return toolResult(res, err)
}

func (g *Gateway) toolToggle(enabled bool) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var res cron.Toggle
		event := security.EventJobDisable
		if enabled {
			event = security.EventJobEnable
			res, err = g.admin.EnableJob(name)
		} else {
			res, err = g.admin.DisableJob(name)
		}
		if err == nil {
			g.audit.Log(security.AuditEvent{Type: event, Job: name, Detail: "mcp"})
		}
		return toolResult(res, err)
	}
}

// toolResult renders v as JSON text. Unknown jobs become tool errors the
// model can read; other failures are returned as protocol errors.
func toolResult(v any, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, cron.ErrUnknownJob) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
