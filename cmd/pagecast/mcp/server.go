package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
)

// UploadArgs defines arguments for the upload_pdf tool
type UploadArgs struct {
	Path string `json:"path" jsonschema:"description=Local path of the PDF to upload,required"`
}

// PageArgs defines arguments for the convert_page and summarize_page tools
type PageArgs struct {
	Page int `json:"page" jsonschema:"description=1-based page number,required"`
}

// DownloadArgs defines arguments for the download_audio tool
type DownloadArgs struct {
	Kind string `json:"kind,omitempty" jsonschema:"description=page or summary (default: page)"`
	Dir  string `json:"dir,omitempty" jsonschema:"description=Directory to save into"`
}

// UploadResult is returned by upload_pdf
type UploadResult struct {
	SessionID  string `json:"session_id"`
	File       string `json:"file"`
	TotalPages int    `json:"total_pages"`
}

// AudioResult is returned by the tools that produce audio
type AudioResult struct {
	Page      int    `json:"page"`
	AudioFile string `json:"audio_file"`
	AudioURL  string `json:"audio_url"`
}

// SummaryResult is returned by summarize_page
type SummaryResult struct {
	Page    int    `json:"page"`
	Summary string `json:"summary"`
}

// DownloadResult is returned by download_audio
type DownloadResult struct {
	Path string `json:"path"`
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// NewServer registers the pagecast tools against one controller. Every tool
// acts on the controller's single live session, so a new upload_pdf cancels
// whatever the previous document was doing.
func NewServer(ctrl *controller.Controller, downloadDir string, version string) *server.MCPServer {
	s := server.NewMCPServer("Pagecast", version)

	uploadTool := mcp.NewTool("upload_pdf",
		mcp.WithDescription("Upload a local PDF to the conversion server and start a new session. Returns the page count."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Local path of the PDF to upload")),
	)
	s.AddTool(uploadTool, makeUploadHandler(ctrl))

	convertTool := mcp.NewTool("convert_page",
		mcp.WithDescription("Convert one page of the uploaded PDF to audio and wait until the audio exists"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("1-based page number")),
	)
	s.AddTool(convertTool, makeConvertHandler(ctrl))

	summarizeTool := mcp.NewTool("summarize_page",
		mcp.WithDescription("Extract the text of one page and return the server's summary of it"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("1-based page number")),
	)
	s.AddTool(summarizeTool, makeSummarizeHandler(ctrl))

	summaryAudioTool := mcp.NewTool("summary_audio",
		mcp.WithDescription("Generate audio for the current summary"),
	)
	s.AddTool(summaryAudioTool, makeSummaryAudioHandler(ctrl))

	downloadTool := mcp.NewTool("download_audio",
		mcp.WithDescription("Save the current page audio or summary audio to a local directory"),
		mcp.WithString("kind",
			mcp.Description("page or summary (default: page)")),
		mcp.WithString("dir",
			mcp.Description("Directory to save into (default: the configured download directory)")),
	)
	s.AddTool(downloadTool, makeDownloadHandler(ctrl, downloadDir))

	return s
}

// StartServer serves the tools over stdio until the client disconnects
func StartServer(ctrl *controller.Controller, downloadDir string, version string) error {
	return server.ServeStdio(NewServer(ctrl, downloadDir, version))
}

func bindArgs(request mcp.CallToolRequest, dst any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	if err := json.Unmarshal(argsBytes, dst); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeUploadHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args UploadArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		if err := ctrl.SelectFile(ctx, args.Path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		s := ctrl.State().Session
		return jsonResult(UploadResult{
			SessionID:  s.ID,
			File:       s.Source.Name,
			TotalPages: s.TotalPages,
		})
	}
}

func makeConvertHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args PageArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		art, err := ctrl.Convert(ctx, args.Page)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(AudioResult{
			Page:      art.Page,
			AudioFile: art.Name,
			AudioURL:  ctrl.Client().AudioURL(art.Name, art.Stamp),
		})
	}
}

func makeSummarizeHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args PageArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		summary, err := ctrl.Summarize(ctx, args.Page)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(SummaryResult{Page: args.Page, Summary: summary})
	}
}

func makeSummaryAudioHandler(ctrl *controller.Controller) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		art, err := ctrl.GenerateSummaryAudio(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(AudioResult{
			Page:      art.Page,
			AudioFile: art.Name,
			AudioURL:  ctrl.Client().AudioURL(art.Name, art.Stamp),
		})
	}
}

func makeDownloadHandler(ctrl *controller.Controller, downloadDir string) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args DownloadArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind, err := models.ParseArtifactKind(args.Kind)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dir := args.Dir
		if dir == "" {
			dir = downloadDir
		}

		path, err := ctrl.Download(ctx, kind, dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(DownloadResult{Path: path})
	}
}
