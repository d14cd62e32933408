package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/internal/vectordb"
)

// handleAskDocuments answers a question over the indexed documents.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	answer, err := s.engine.Answer(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(answer)), nil
}

// handleSearchDocuments performs semantic retrieval without generation.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	results, err := s.engine.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No relevant passages found. The collection may be empty; add documents with `docqa index`."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleListDocuments returns the indexed document inventory.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}

	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents indexed yet. Add some with `docqa index <path>`."), nil
	}

	return mcp.NewToolResultText(formatDocuments(docs)), nil
}

// formatAnswer renders an answer with its confidence and citations in
// a text form agents can quote directly.
func formatAnswer(answer *rag.Answer) string {
	var sb strings.Builder
	sb.WriteString(answer.Text)
	sb.WriteString(fmt.Sprintf("\n\nConfidence: %.0f%%\n", answer.Confidence*100))

	if len(answer.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for i, src := range answer.Sources {
			sb.WriteString(fmt.Sprintf("%d. %s, page %d (similarity %.1f%%)\n", i+1, src.Document, src.Page, src.Score*100))
		}
	}

	return sb.String()
}

// formatSearchResults converts retrieval hits into a rich text format
// optimized for AI agent consumption.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Passage %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Document: %s, page %d\n", r.Chunk.Document, r.Chunk.Page))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Score*100))
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatDocuments renders the document list with per-document status.
func formatDocuments(docs []docstore.Document) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n\n", len(docs)))

	for _, doc := range docs {
		switch doc.Status {
		case docstore.StatusIndexed:
			sb.WriteString(fmt.Sprintf("- %s (indexed, %d pages, %d chunks)\n", doc.Name, doc.Pages, doc.Chunks))
		case docstore.StatusError:
			sb.WriteString(fmt.Sprintf("- %s (error: %s)\n", doc.Name, doc.ErrorMessage))
		default:
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", doc.Name, doc.Status))
		}
	}

	return sb.String()
}
