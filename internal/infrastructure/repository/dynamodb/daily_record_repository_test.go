package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable applies SET updates to an in-memory item the way DynamoDB does
// for the expression the repository builds.
type fakeTable struct {
	items   map[string]map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
	err     error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}}
}

func itemID(key map[string]types.AttributeValue) string {
	return key[attrLeague].(*types.AttributeValueMemberS).Value + "#" + key[attrGameDate].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemID(in.Key)]}, nil
}

func (f *fakeTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, in)

	id := itemID(in.Key)
	item, ok := f.items[id]
	if !ok {
		item = map[string]types.AttributeValue{}
		for k, v := range in.Key {
			item[k] = v
		}
	}
	for placeholder, name := range in.ExpressionAttributeNames {
		if name == attrCreatedAt {
			if _, exists := item[name]; !exists {
				item[name] = in.ExpressionAttributeValues[":now"]
			}
			continue
		}
		valueKey := ":" + placeholder[1:]
		if name == attrUpdatedAt {
			valueKey = ":now"
		}
		item[name] = in.ExpressionAttributeValues[valueKey]
	}
	f.items[id] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDailyRecordRepository_UpsertThenGet(t *testing.T) {
	t.Parallel()

	table := newFakeTable()
	table.items["nba#2026-01-15"] = map[string]types.AttributeValue{
		attrLeague:    &types.AttributeValueMemberS{Value: "nba"},
		attrGameDate:  &types.AttributeValueMemberS{Value: "2026-01-15"},
		"Notes":       &types.AttributeValueMemberS{Value: "kept"},
		attrCreatedAt: &types.AttributeValueMemberN{Value: "1700000000"},
	}

	repo := NewDailyRecordRepository(table, "daily_records")
	repo.now = func() time.Time { return time.Unix(1768507440, 0) }

	total := 221.5
	err := repo.Upsert(context.Background(), dailyrecord.Update{
		League:      "NBA",
		Date:        "2026-01-15",
		Games:       []game.Game{{GameNum: 1, AwayTeam: "Boston Celtics", HomeTeam: "New York Knicks", Total: &total}},
		LastUpdated: "08:04 PM",
		DataSource:  "scoreboard",
		PPGLocked:   true,
	})
	require.NoError(t, err)
	require.Len(t, table.updates, 1)
	assert.Contains(t, *table.updates[0].UpdateExpression, "if_not_exists(#ca, :now)")

	record, found, err := repo.Get(context.Background(), "nba", "2026-01-15")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "nba", record.League)
	assert.True(t, record.PPGLocked)
	assert.Equal(t, "08:04 PM", record.LastUpdated)
	require.Len(t, record.Games, 1)
	assert.Equal(t, 221.5, *record.Games[0].Total)
	assert.Empty(t, record.Plays)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), record.CreatedAt)
	assert.Equal(t, "kept", table.items["nba#2026-01-15"]["Notes"].(*types.AttributeValueMemberS).Value)
}

func TestDailyRecordRepository_GetMissing(t *testing.T) {
	t.Parallel()

	repo := NewDailyRecordRepository(newFakeTable(), "daily_records")
	_, found, err := repo.Get(context.Background(), "nba", "2026-01-15")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDailyRecordRepository_Errors(t *testing.T) {
	t.Parallel()

	table := newFakeTable()
	table.err = errors.New("throttled")
	repo := NewDailyRecordRepository(table, "daily_records")

	_, _, err := repo.Get(context.Background(), "nba", "2026-01-15")
	require.Error(t, err)
	require.Error(t, repo.Upsert(context.Background(), dailyrecord.Update{League: "nba", Date: "2026-01-15"}))
	require.Error(t, NewDailyRecordRepository(newFakeTable(), "t").Upsert(context.Background(), dailyrecord.Update{Date: "2026-01-15"}))
}
