package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the wizard tools with the MCP server.
func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session_id", mcp.Required(),
		mcp.Description("Session id returned by wizard-start"))

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-start",
			mcp.WithDescription("Start a new crop analysis wizard session at step 1"),
			mcp.WithString("language",
				mcp.Description("Display language: en or hi (defaults to the server language)"),
				mcp.Enum("en", "hi")),
		),
		s.handleStart,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-state",
			mcp.WithDescription("Show the current step, inputs, offered actions and result of a session"),
			sessionArg,
		),
		s.handleState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-set-field",
			mcp.WithDescription("Set one input of the visible step. Step 1: location, rainfall (mm), temperature (°C). "+
				"Step 2: soil_type (red, black, clay, sandy). Step 3: n, p, k (integers 0-200)."),
			sessionArg,
			mcp.WithString("field", mcp.Required(),
				mcp.Description("Field name"),
				mcp.Enum("location", "rainfall", "temperature", "soil_type", "n", "p", "k")),
			mcp.WithString("value", mcp.Required(),
				mcp.Description("New value, as text")),
		),
		s.handleSetField,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-advance",
			mcp.WithDescription("Go to the next step. On step 3 this submits the analysis and waits for the recommendation."),
			sessionArg,
		),
		s.handleAdvance,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-retreat",
			mcp.WithDescription("Go back one step without losing input"),
			sessionArg,
		),
		s.handleRetreat,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-restart",
			mcp.WithDescription("Leave the result (or a failed submission) and start a new analysis from step 1"),
			sessionArg,
		),
		s.handleRestart,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-toggle-language",
			mcp.WithDescription("Switch the session between English and Hindi"),
			sessionArg,
		),
		s.handleToggleLanguage,
	)
}
