package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a row with this primary key already exists
//	DB002 - Unique constraint: a unique value already exists
//	DB003 - Foreign key: referenced row does not exist
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Statement rejected: the database did not accept the statement
//
// # Key Errors (KEY001-KEY099)
//
//	KEY001 - Key not covered: an insert did not name every primary-key column
//	KEY002 - Key mismatch: a delete named more or fewer columns than the key
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Unknown column
//	COL002 - Type mismatch
//	COL003 - Duplicate column
//
// # Value Errors (VAL001-VAL099)
//
//	VAL001 - Invalid number (including out of range)
//	VAL002 - Invalid boolean or text
//	VAL003 - Empty CSV import
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown table
//
// # Edit Errors (EDIT001-EDIT099)
//
//	EDIT001 - Session busy
//	EDIT002 - Nothing to save
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Malformed request
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original error.
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come first.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "bad request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body against the API documentation",
			Code:    "REQ003",
		},
	},

	// Contract errors carry the most specific text, so they go first.
	{
		pattern: "fields do not cover the primary key",
		msg: UserMessage{
			Message: "Every primary-key column must be given",
			Action:  "Add the missing key columns to the entry",
			Code:    "KEY001",
		},
	},
	{
		pattern: "fields do not match the primary key exactly",
		msg: UserMessage{
			Message: "A delete must name exactly the primary-key columns",
			Action:  "Send only the key columns when deleting",
			Code:    "KEY002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The table has no such column",
			Action:  "Check the column names against the table schema",
			Code:    "COL001",
		},
	},
	{
		pattern: "type mismatch",
		msg: UserMessage{
			Message: "A value has the wrong type for its column",
			Action:  "Check the column types against the table schema",
			Code:    "COL002",
		},
	},
	{
		pattern: "duplicate column",
		msg: UserMessage{
			Message: "A column was given more than once",
			Action:  "Send each column at most once",
			Code:    "COL003",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number",
			Action:  "Use a plain decimal number without separators",
			Code:    "VAL001",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "Number is out of range for its column",
			Action:  "Use a smaller value",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid boolean",
		msg: UserMessage{
			Message: "Invalid true/false value",
			Action:  "Use true/false, yes/no or 1/0",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid text",
		msg: UserMessage{
			Message: "Text column expects a string",
			Action:  "Quote the value",
			Code:    "VAL002",
		},
	},
	{
		pattern: "empty import",
		msg: UserMessage{
			Message: "The CSV file is empty",
			Action:  "Add a header row naming the columns",
			Code:    "VAL003",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "Unknown table",
			Action:  "This table is not configured for editing",
			Code:    "TBL001",
		},
	},
	{
		pattern: "session is busy",
		msg: UserMessage{
			Message: "Another edit is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "EDIT001",
		},
	},
	{
		pattern: "nothing to save",
		msg: UserMessage{
			Message: "The session has no changes",
			Action:  "Make an edit before saving",
			Code:    "EDIT002",
		},
	},

	// Database errors.
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A row with this primary key already exists",
			Action:  "Reload the row and edit it instead",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Choose a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced row does not exist",
			Action:  "Create the referenced row first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Check the database connection and try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
}

// statementMessage is used for statement failures no pattern explains.
var statementMessage = UserMessage{
	Message: "The database rejected the statement",
	Action:  "Check the application logs for the database error",
	Code:    "DB007",
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match, or ERR000 when nothing matches.
//
// Example:
//
//	err := errors.New("duplicate key value violates unique constraint")
//	msg := MapError(err)
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Statement text holds user data; match only the database's own error.
	var stmtErr *StatementError
	if errors.As(err, &stmtErr) {
		if stmtErr.Err != nil {
			if msg, ok := matchPattern(stmtErr.Err.Error()); ok {
				return msg
			}
		}
		return statementMessage
	}
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		if msg, ok := matchPattern(convErr.Reason); ok {
			return msg
		}
	}

	if msg, ok := matchPattern(err.Error()); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(text string) (UserMessage, bool) {
	errStr := strings.ToLower(text)
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
