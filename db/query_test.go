package db

import (
	"adventcal/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// --- Parsing Tests ---

func TestParseContentQuery(t *testing.T) {
	testCases := []struct {
		name      string
		parts     []string
		wantErr   bool
		wantConds int
		wantLogic []LogicalOperator
	}{
		{"Empty", nil, false, 0, nil},
		{"Single", []string{"recipientName equals Ada"}, false, 1, nil},
		{"AndOr", []string{"recipientName equals Ada", "AND", "doors.0.isUnlocked equals true", "or", "id equals x"}, false, 3, []LogicalOperator{LogicAnd, LogicOr}},
		{"TrailingLogic", []string{"recipientName equals Ada", "and"}, true, 0, nil},
		{"BadLogic", []string{"recipientName equals Ada", "xor", "id equals x"}, true, 0, nil},
		{"EmptyPart", []string{" "}, true, 0, nil},
		{"MissingValue", []string{"recipientName equals"}, true, 0, nil},
		{"UnknownOperator", []string{"recipientName like Ada"}, true, 0, nil},
		{"NumericInsensitive", []string{"doors.# greaterthan-insensitive 3"}, true, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseContentQuery(tc.parts)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.wantConds == 0 {
				assert.Nil(t, parsed)
				return
			}
			assert.Len(t, parsed.Conditions, tc.wantConds)
			assert.Equal(t, tc.wantLogic, parsed.Logic)
		})
	}
}

func TestParseSingleCondition_Values(t *testing.T) {
	testCases := []struct {
		input     string
		wantValue interface{}
		wantType  gjson.Type
	}{
		{`recipientName equals "Ada Lovelace"`, "Ada Lovelace", gjson.String},
		{`recipientName equals Ada Lovelace`, "Ada Lovelace", gjson.String},
		{`doors.0.day equals 1`, 1.0, gjson.Number},
		{`doors.0.isUnlocked equals false`, false, gjson.False},
		{`doors.0.text equals null`, nil, gjson.Null},
		{`recipientInterest contains equals`, "equals", gjson.String},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			cond, err := parseSingleCondition(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.wantValue, cond.ParsedValue)
			assert.Equal(t, tc.wantType, cond.ValueType)
		})
	}

	cond, err := parseSingleCondition("recipientName Contains-Insensitive ada")
	require.NoError(t, err)
	assert.Equal(t, "contains", cond.Operator)
	assert.True(t, cond.IsInsensitive)
}

// --- Evaluation Tests ---

func queryTestCalendar() models.Calendar {
	cal := testCalendar("cal1", "creator", "Ada", time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC))
	cal.RecipientInterest = "Stars and Planets"
	door, _ := cal.Door(1)
	door.SetText("hello world")
	door.UnlockAt(time.Date(2025, time.December, 1, 7, 0, 0, 0, time.UTC))
	cal.UpdateDoor(door)
	return cal
}

func TestEvaluateContentQuery(t *testing.T) {
	cal := queryTestCalendar()

	testCases := []struct {
		name  string
		parts []string
		want  bool
	}{
		{"NoQuery", nil, true},
		{"EqualsString", []string{"recipientName equals Ada"}, true},
		{"NotEquals", []string{"recipientName notequals Ada"}, false},
		{"ContainsInsensitive", []string{"recipientInterest contains-insensitive planets"}, true},
		{"ContainsSensitive", []string{"recipientInterest contains planets"}, false},
		{"StartsWith", []string{"doors.0.text startswith hello"}, true},
		{"EndsWith", []string{"doors.0.text endswith-insensitive WORLD"}, true},
		{"Bool", []string{"doors.0.isUnlocked equals true"}, true},
		{"Number", []string{"doors.# equals 24"}, true},
		{"NumberCompare", []string{"doors.1.day greaterthanorequals 2"}, true},
		{"MissingFieldIsNull", []string{"doors.1.text equals null"}, true},
		{"MissingFieldNotEqualsValue", []string{"doors.1.text notequals hi"}, true},
		{"ArrayContains", []string{"doors.#.contentType contains text"}, true},
		{"ArrayContainsMissing", []string{"doors.#.contentType contains image"}, false},
		{"AndShortCircuitsLeftToRight", []string{"recipientName equals Bob", "and", "doors.# equals 24"}, false},
		{"Or", []string{"recipientName equals Bob", "or", "doors.# equals 24"}, true},
		{"LeftToRight", []string{"recipientName equals Bob", "or", "doors.# equals 24", "and", "id equals nope"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseContentQuery(tc.parts)
			require.NoError(t, err)
			got, err := EvaluateContentQuery(cal, parsed)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateContentQuery_Errors(t *testing.T) {
	cal := queryTestCalendar()

	for _, parts := range [][]string{
		{"recipientName greaterthan 3"},
		{"doors.# startswith 2"},
		{"doors.0 equals x"},
		{"doors.#.day equals 1"},
		{"doors.0.isUnlocked greaterthan true"},
	} {
		parsed, err := ParseContentQuery(parts)
		require.NoError(t, err)
		_, err = EvaluateContentQuery(cal, parsed)
		assert.Error(t, err, parts[0])
	}
}

// --- QueryCalendars Tests ---

func seedQueryRepository(t *testing.T) *Repository {
	t.Helper()
	repo := setupRepository(t)
	ctx := context.Background()
	base := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateCalendar(ctx, testCalendar("c-ada", "me", "Ada", base)))
	require.NoError(t, repo.CreateCalendar(ctx, testCalendar("c-bob", "me", "bob", base.Add(time.Hour))))
	require.NoError(t, repo.CreateCalendar(ctx, testCalendar("c-cy", "me", "Cy", base.Add(2*time.Hour))))

	gift := testCalendar("r-gift", "friend", "Me", base.Add(3*time.Hour))
	door, _ := gift.Door(5)
	door.SetText("secret")
	gift.UpdateDoor(door)
	require.NoError(t, repo.CreateCalendar(ctx, gift))

	_, err := repo.EnsureUser(ctx, "me")
	require.NoError(t, err)
	require.NoError(t, repo.ShareCalendar(ctx, "r-gift", "me"))
	return repo
}

func calendarIDs(cals []models.Calendar) []string {
	ids := make([]string, len(cals))
	for i, c := range cals {
		ids[i] = c.ID
	}
	return ids
}

func TestQueryCalendars_Scopes(t *testing.T) {
	repo := seedQueryRepository(t)
	ctx := context.Background()

	testCases := []struct {
		scope string
		want  []string
	}{
		{ScopeCreated, []string{"c-cy", "c-bob", "c-ada"}},
		{ScopeReceived, []string{"r-gift"}},
		{ScopeAll, []string{"r-gift", "c-cy", "c-bob", "c-ada"}},
		{"", []string{"r-gift", "c-cy", "c-bob", "c-ada"}},
	}
	for _, tc := range testCases {
		t.Run("scope="+tc.scope, func(t *testing.T) {
			cals, total, err := repo.QueryCalendars(ctx, QueryCalendarsParams{UserID: "me", Scope: tc.scope})
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), total)
			assert.Equal(t, tc.want, calendarIDs(cals))
		})
	}
}

func TestQueryCalendars_ReceivedAreRedacted(t *testing.T) {
	repo := seedQueryRepository(t)
	ctx := context.Background()

	cals, _, err := repo.QueryCalendars(ctx, QueryCalendarsParams{UserID: "me", Scope: ScopeReceived})
	require.NoError(t, err)
	require.Len(t, cals, 1)
	door, _ := cals[0].Door(5)
	assert.Equal(t, models.ContentEmpty, door.ContentType)
	assert.Nil(t, door.Text)

	// filters only see the redacted copy
	for _, q := range []string{"doors.4.text equals secret", "doors.4.contentType equals text"} {
		cals, total, err := repo.QueryCalendars(ctx, QueryCalendarsParams{
			UserID: "me", Scope: ScopeReceived, ContentQuery: []string{q},
		})
		require.NoError(t, err)
		assert.Zero(t, total, q)
		assert.Empty(t, cals, q)
	}
}

func TestQueryCalendars_SortAndPaginate(t *testing.T) {
	repo := seedQueryRepository(t)
	ctx := context.Background()

	cals, total, err := repo.QueryCalendars(ctx, QueryCalendarsParams{
		UserID: "me", Scope: ScopeCreated, SortBy: "recipient_name", Order: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"c-ada", "c-bob", "c-cy"}, calendarIDs(cals))

	cals, total, err = repo.QueryCalendars(ctx, QueryCalendarsParams{
		UserID: "me", Scope: ScopeCreated, Order: "asc", Page: 2, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"c-cy"}, calendarIDs(cals))

	cals, _, err = repo.QueryCalendars(ctx, QueryCalendarsParams{UserID: "me", Page: 9})
	require.NoError(t, err)
	assert.Empty(t, cals)
}

func TestQueryCalendars_ContentQuery(t *testing.T) {
	repo := seedQueryRepository(t)

	cals, total, err := repo.QueryCalendars(context.Background(), QueryCalendarsParams{
		UserID: "me", ContentQuery: []string{"recipientName equals-insensitive BOB", "or", "recipientName equals Cy"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"c-cy", "c-bob"}, calendarIDs(cals))
}

func TestQueryCalendars_SkipsDanglingAndDuplicateIDs(t *testing.T) {
	repo := seedQueryRepository(t)
	ctx := context.Background()

	user, err := repo.GetUser(ctx, "me")
	require.NoError(t, err)
	user.AddCreatedCalendar("gone")
	user.AddCreatedCalendar("c-ada")
	require.NoError(t, repo.Store().Set(ctx, CollectionUsers, "me", user.ToRecord()))

	_, total, err := repo.QueryCalendars(ctx, QueryCalendarsParams{UserID: "me", Scope: ScopeCreated})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestQueryCalendars_UnknownUser(t *testing.T) {
	repo := setupRepository(t)

	cals, total, err := repo.QueryCalendars(context.Background(), QueryCalendarsParams{UserID: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, cals)
	assert.Empty(t, cals)
}

func TestQueryCalendars_InvalidParams(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	for _, params := range []QueryCalendarsParams{
		{UserID: "me", Scope: "everything"},
		{UserID: "me", SortBy: "day"},
		{UserID: "me", Order: "up"},
		{UserID: "me", ContentQuery: []string{"broken"}},
	} {
		_, _, err := repo.QueryCalendars(ctx, params)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	}
}
