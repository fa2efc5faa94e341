package contentpipe

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers content pipeline tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerProcessTool(srv)
	p.registerDetectTool(srv)
}

type processArgs struct {
	BookID        string `json:"book_id" jsonschema:"book whose section list is rebuilt"`
	ManuscriptURL string `json:"manuscript_url" jsonschema:"public URL of the manuscript file"`
	FileType      string `json:"file_type,omitempty" jsonschema:"pdf, epub, or docx; detected from the URL when omitted"`
	SamplePercent int    `json:"sample_percent,omitempty" jsonschema:"percent of total words given away as the free sample"`
}

type processResult struct {
	Status string `json:"status"`
}

func (p *Pipeline) registerProcessTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "content_process",
		Description: "Structure a manuscript (pdf, epub, docx) into ordered reading sections and replace the book's section list.",
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, req *mcp.CallToolRequest, args processArgs) (*mcp.CallToolResult, processResult, error) {
		format := Format(args.FileType)
		if args.FileType == "" {
			detected, err := p.Detect(args.ManuscriptURL)
			if err != nil {
				return nil, processResult{}, err
			}
			format = detected
		}
		if err := p.Process(ctx, args.BookID, args.ManuscriptURL, format, args.SamplePercent); err != nil {
			return nil, processResult{}, err
		}
		return nil, processResult{Status: "ok"}, nil
	})
}

type detectArgs struct {
	Name string `json:"name" jsonschema:"file path or URL to detect"`
}

type detectResult struct {
	Format string `json:"format"`
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "content_detect",
		Description: "Detect the manuscript format of a file path or URL from its extension.",
	}
	mcp.AddTool(srv, tool, func(_ context.Context, _ *mcp.CallToolRequest, args detectArgs) (*mcp.CallToolResult, detectResult, error) {
		format, err := p.Detect(args.Name)
		if err != nil {
			return nil, detectResult{}, err
		}
		return nil, detectResult{Format: string(format)}, nil
	})
}
