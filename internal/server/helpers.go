package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"schoolmates/internal/models"
	"schoolmates/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "userId" -> "Invalid user ID", "conversationId" -> "Invalid conversation ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// bindJSON parses the request body into dst and runs its validate tags.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	if err := validation.Struct(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
		return errResponseWritten
	}
	return nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "conversationId" -> "conversation ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// IDList is a list of ids accepted either as a JSON array of numbers or
// numeric strings, or as a single comma separated string.
type IDList []uint

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var joined string
		if serr := json.Unmarshal(data, &joined); serr != nil {
			return err
		}
		ids, perr := parseIDString(joined)
		if perr != nil {
			return perr
		}
		*l = ids
		return nil
	}

	ids := make(IDList, 0, len(raw))
	for _, item := range raw {
		var n uint
		if err := json.Unmarshal(item, &n); err == nil {
			ids = append(ids, n)
			continue
		}
		var str string
		if err := json.Unmarshal(item, &str); err != nil {
			return errors.New("ids must be numbers")
		}
		parsed, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
		if err != nil {
			return errors.New("ids must be numbers")
		}
		ids = append(ids, uint(parsed))
	}
	*l = ids
	return nil
}

func parseIDString(joined string) (IDList, error) {
	ids := IDList{}
	for _, part := range strings.Split(joined, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, errors.New("ids must be numbers")
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

// TextList is a list of strings accepted either as a JSON array or as a
// single comma separated string.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = TextList(models.StringList(items).Normalize())
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return errors.New("must be a list of strings")
	}
	*l = TextList(models.ParseStringList(joined))
	return nil
}

// FlexID is an id accepted either as a JSON number or a numeric string.
type FlexID uint

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexID(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("id must be a number")
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(str), 10, 64)
	if err != nil {
		return errors.New("id must be a number")
	}
	*id = FlexID(parsed)
	return nil
}
