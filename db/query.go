package db

import (
	"adventcal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// ErrInvalidQuery marks errors caused by bad query parameters.
var ErrInvalidQuery = errors.New("invalid query")

// --- Query Structures ---

// QueryCondition is a single "path operator value" condition.
type QueryCondition struct {
	Path          string      // gjson path into the calendar JSON
	Operator      string      // base operator, without the -insensitive suffix
	ParsedValue   interface{} // string, float64, bool or nil
	ValueType     gjson.Type
	IsInsensitive bool
	Original      string
}

// LogicalOperator joins two conditions.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "and"
	LogicOr  LogicalOperator = "or"
)

// ParsedQuery holds the conditions and the operators between them.
// Logic[i] applies between Conditions[i] and Conditions[i+1]; evaluation is left to right.
type ParsedQuery struct {
	Conditions []QueryCondition
	Logic      []LogicalOperator
}

// --- Query Parsing ---

var validOperators = map[string]bool{
	"equals": true, "notequals": true,
	"greaterthan": true, "lessthan": true,
	"greaterthanorequals": true, "lessthanorequals": true,
	"contains": true, "startswith": true, "endswith": true,
}

var insensitiveOperators = map[string]bool{
	"equals": true, "notequals": true, "contains": true, "startswith": true, "endswith": true,
}

// ParseContentQuery parses alternating condition / logic parts, e.g.
// ["recipientName equals Ada", "or", "recipientInterest contains-insensitive stars"].
// An empty slice means no filter and yields nil.
func ParseContentQuery(queryParts []string) (*ParsedQuery, error) {
	if len(queryParts) == 0 {
		return nil, nil
	}

	parsed := &ParsedQuery{}
	expectingCondition := true

	for i, part := range queryParts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("query part at index %d is empty", i)
		}

		if expectingCondition {
			condition, err := parseSingleCondition(part)
			if err != nil {
				return nil, fmt.Errorf("invalid condition at index %d ('%s'): %w", i, part, err)
			}
			parsed.Conditions = append(parsed.Conditions, condition)
		} else {
			logic := LogicalOperator(strings.ToLower(part))
			if logic != LogicAnd && logic != LogicOr {
				return nil, fmt.Errorf("invalid logical operator at index %d: '%s', expected 'and' or 'or'", i, part)
			}
			parsed.Logic = append(parsed.Logic, logic)
		}
		expectingCondition = !expectingCondition
	}

	if expectingCondition {
		return nil, errors.New("query must end with a condition, not a logical operator")
	}
	return parsed, nil
}

func parseSingleCondition(conditionStr string) (QueryCondition, error) {
	parts := strings.Fields(conditionStr)
	if len(parts) < 3 {
		return QueryCondition{}, errors.New("condition must have a path, an operator and a value")
	}

	path := parts[0]
	operator := strings.ToLower(parts[1])
	afterPath := strings.Index(conditionStr, parts[0]) + len(parts[0])
	afterOperator := afterPath + strings.Index(conditionStr[afterPath:], parts[1]) + len(parts[1])
	rawValue := strings.TrimSpace(conditionStr[afterOperator:])

	isInsensitive := false
	if base, ok := strings.CutSuffix(operator, "-insensitive"); ok {
		if !insensitiveOperators[base] {
			return QueryCondition{}, fmt.Errorf("invalid base operator for insensitive matching '%s'", base)
		}
		isInsensitive = true
		operator = base
	}
	if !validOperators[operator] {
		return QueryCondition{}, fmt.Errorf("invalid operator '%s'", operator)
	}

	parsedValue, valueType := parseLiteral(rawValue)
	return QueryCondition{
		Path:          path,
		Operator:      operator,
		ParsedValue:   parsedValue,
		ValueType:     valueType,
		IsInsensitive: isInsensitive,
		Original:      conditionStr,
	}, nil
}

// parseLiteral types a raw value: quoted string, null, number, bool, else bare string.
func parseLiteral(raw string) (interface{}, gjson.Type) {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1], gjson.String
	}
	if raw == "null" {
		return nil, gjson.Null
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, gjson.Number
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return true, gjson.True
		}
		return false, gjson.False
	}
	return raw, gjson.String
}

// --- Query Evaluation ---

// EvaluateContentQuery checks whether the calendar matches the query.
func EvaluateContentQuery(cal models.Calendar, query *ParsedQuery) (bool, error) {
	if query == nil || len(query.Conditions) == 0 {
		return true, nil
	}

	data, err := json.Marshal(cal)
	if err != nil {
		return false, fmt.Errorf("failed to marshal calendar %s: %w", cal.ID, err)
	}
	content := string(data)

	result, err := evaluateSingleCondition(content, query.Conditions[0])
	if err != nil {
		return false, err
	}
	for i, logic := range query.Logic {
		next, err := evaluateSingleCondition(content, query.Conditions[i+1])
		if err != nil {
			return false, err
		}
		switch logic {
		case LogicAnd:
			result = result && next
		case LogicOr:
			result = result || next
		}
	}
	return result, nil
}

func evaluateSingleCondition(content string, cond QueryCondition) (bool, error) {
	target := gjson.Get(content, cond.Path)
	if !target.Exists() {
		// absent optional fields (text, imageURL) compare like null
		target = gjson.Result{Type: gjson.Null}
	}
	ok, err := compareJSONValue(target, cond)
	if err != nil {
		return false, fmt.Errorf("error evaluating condition '%s': %w", cond.Original, err)
	}
	return ok, nil
}

func compareJSONValue(target gjson.Result, cond QueryCondition) (bool, error) {
	op := cond.Operator

	if target.IsArray() {
		if op != "contains" {
			return false, fmt.Errorf("operator '%s' is invalid for array comparison", op)
		}
		found := false
		target.ForEach(func(_, elem gjson.Result) bool {
			found = scalarEquals(elem, cond)
			return !found
		})
		return found, nil
	}
	if target.IsObject() {
		return false, fmt.Errorf("operator '%s' cannot directly compare JSON objects", op)
	}

	if target.Type == gjson.Null || cond.ValueType == gjson.Null {
		both := target.Type == gjson.Null && cond.ValueType == gjson.Null
		switch op {
		case "equals":
			return both, nil
		case "notequals":
			return !both, nil
		case "contains":
			return false, nil
		default:
			return false, fmt.Errorf("operator '%s' invalid for null comparison", op)
		}
	}

	switch target.Type {
	case gjson.String:
		valStr, ok := cond.ParsedValue.(string)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: cannot compare string with %s using operator '%s'", cond.ValueType, op)
		}
		targetStr := target.String()
		if cond.IsInsensitive {
			targetStr = strings.ToLower(targetStr)
			valStr = strings.ToLower(valStr)
		}
		switch op {
		case "equals":
			return targetStr == valStr, nil
		case "notequals":
			return targetStr != valStr, nil
		case "contains":
			return strings.Contains(targetStr, valStr), nil
		case "startswith":
			return strings.HasPrefix(targetStr, valStr), nil
		case "endswith":
			return strings.HasSuffix(targetStr, valStr), nil
		default:
			return false, fmt.Errorf("type mismatch: cannot apply numeric operator '%s' to string value", op)
		}

	case gjson.Number:
		valNum, ok := cond.ParsedValue.(float64)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: value '%v' is not a valid number for comparison with operator '%s'", cond.ParsedValue, op)
		}
		if cond.IsInsensitive {
			return false, fmt.Errorf("operator '%s' cannot be case-insensitive for numeric comparison", op)
		}
		targetNum := target.Float()
		switch op {
		case "equals":
			return targetNum == valNum, nil
		case "notequals":
			return targetNum != valNum, nil
		case "greaterthan":
			return targetNum > valNum, nil
		case "lessthan":
			return targetNum < valNum, nil
		case "greaterthanorequals":
			return targetNum >= valNum, nil
		case "lessthanorequals":
			return targetNum <= valNum, nil
		default:
			return false, fmt.Errorf("type mismatch: cannot apply string operator '%s' to numeric value", op)
		}

	case gjson.True, gjson.False:
		valBool, ok := cond.ParsedValue.(bool)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: value '%v' is not a valid boolean for comparison with operator '%s'", cond.ParsedValue, op)
		}
		switch op {
		case "equals":
			return target.Bool() == valBool, nil
		case "notequals":
			return target.Bool() != valBool, nil
		default:
			return false, fmt.Errorf("operator '%s' is invalid for boolean comparison", op)
		}
	}

	return false, fmt.Errorf("unsupported type '%s' encountered during query evaluation", target.Type)
}

// scalarEquals matches an array element against the condition value with strict typing.
func scalarEquals(elem gjson.Result, cond QueryCondition) bool {
	switch elem.Type {
	case gjson.String:
		s, ok := cond.ParsedValue.(string)
		if !ok {
			return false
		}
		if cond.IsInsensitive {
			return strings.EqualFold(elem.String(), s)
		}
		return elem.String() == s
	case gjson.Number:
		f, ok := cond.ParsedValue.(float64)
		return ok && elem.Float() == f
	case gjson.True, gjson.False:
		b, ok := cond.ParsedValue.(bool)
		return ok && elem.Bool() == b
	case gjson.Null:
		return cond.ValueType == gjson.Null
	}
	return false
}

// --- Main Query Function ---

// Calendar list scopes.
const (
	ScopeCreated  = "created"
	ScopeReceived = "received"
	ScopeAll      = "all"
)

// QueryCalendarsParams holds all parameters for listing a user's calendars.
type QueryCalendarsParams struct {
	UserID       string
	Scope        string   // created, received or all (default)
	ContentQuery []string // raw content_query parts
	SortBy       string   // created_at (default) or recipient_name
	Order        string   // asc or desc (default)
	Page         int      // 1-based
	Limit        int      // default 20, max 100
}

// QueryCalendars lists the calendars the user created and/or received, filtered, sorted and paginated.
// Received calendars are redacted before filtering. Ids whose calendar is gone or malformed are skipped.
// It returns the page and the total number of matches.
func (r *Repository) QueryCalendars(ctx context.Context, params QueryCalendarsParams) ([]models.Calendar, int, error) {
	parsedQuery, err := ParseContentQuery(params.ContentQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: content_query: %v", ErrInvalidQuery, err)
	}

	scope := strings.ToLower(params.Scope)
	switch scope {
	case ScopeCreated, ScopeReceived:
	case ScopeAll, "":
		scope = ScopeAll
	default:
		return nil, 0, fmt.Errorf("%w: scope '%s', expected 'created', 'received' or 'all'", ErrInvalidQuery, params.Scope)
	}
	if err := validateSort(params.SortBy, params.Order); err != nil {
		return nil, 0, err
	}

	user, err := r.GetUser(ctx, params.UserID)
	if errors.Is(err, ErrNotFound) {
		return []models.Calendar{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]bool)
	var candidates []models.Calendar
	collect := func(ids []string, redact bool) error {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			cal, err := r.GetCalendar(ctx, id)
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedRecord) {
				log.Warn().Err(err).Str("calendar", id).Str("uid", user.UID).Msg("skipping calendar")
				continue
			}
			if err != nil {
				return err
			}
			if redact {
				cal = cal.RedactedForRecipient()
			}
			candidates = append(candidates, cal)
		}
		return nil
	}

	if scope != ScopeReceived {
		if err := collect(user.CreatedCalendarIDs, false); err != nil {
			return nil, 0, err
		}
	}
	if scope != ScopeCreated {
		if err := collect(user.ReceivedCalendarIDs, true); err != nil {
			return nil, 0, err
		}
	}

	filtered := make([]models.Calendar, 0, len(candidates))
	for _, cal := range candidates {
		match, err := EvaluateContentQuery(cal, parsedQuery)
		if err != nil {
			log.Warn().Err(err).Str("calendar", cal.ID).Msg("error evaluating content query, skipping calendar")
			continue
		}
		if match {
			filtered = append(filtered, cal)
		}
	}

	total := len(filtered)
	sortCalendars(filtered, params.SortBy, params.Order)
	return paginateCalendars(filtered, params.Page, params.Limit), total, nil
}

// --- Sorting Helper ---

func validateSort(sortBy, order string) error {
	switch strings.ToLower(sortBy) {
	case "created_at", "recipient_name", "":
	default:
		return fmt.Errorf("%w: sort_by '%s', expected 'created_at' or 'recipient_name'", ErrInvalidQuery, sortBy)
	}
	switch strings.ToLower(order) {
	case "asc", "desc", "":
	default:
		return fmt.Errorf("%w: order '%s', expected 'asc' or 'desc'", ErrInvalidQuery, order)
	}
	return nil
}

func sortCalendars(cals []models.Calendar, sortBy, order string) {
	less := func(i, j int) bool {
		if strings.ToLower(sortBy) == "recipient_name" {
			return strings.ToLower(cals[i].RecipientName) < strings.ToLower(cals[j].RecipientName)
		}
		return cals[i].CreatedAt.Before(cals[j].CreatedAt)
	}
	if strings.ToLower(order) != "asc" {
		asc := less
		less = func(i, j int) bool { return asc(j, i) }
	}
	sort.SliceStable(cals, less)
}

// --- Pagination Helper ---

const defaultLimit = 20
const maxLimit = 100

func paginateCalendars(cals []models.Calendar, page, limit int) []models.Calendar {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	start := (page - 1) * limit
	if start >= len(cals) {
		return []models.Calendar{}
	}
	end := start + limit
	if end > len(cals) {
		end = len(cals)
	}
	return cals[start:end]
}
