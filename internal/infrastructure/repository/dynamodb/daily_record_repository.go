package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-trading/internal/domain/dailyrecord"
	"github.com/riskibarqy/sports-trading/internal/domain/game"
)

// API is the part of the DynamoDB client the repository calls.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Table layout: PK=League (S), SK=GameDate (S).
const (
	attrLeague      = "League"
	attrGameDate    = "GameDate"
	attrGames       = "Games"
	attrPlays       = "Plays"
	attrLastUpdated = "LastUpdated"
	attrDataSource  = "DataSource"
	attrPPGLocked   = "PPGLocked"
	attrCreatedAt   = "CreatedAt"
	attrUpdatedAt   = "UpdatedAt"
)

type DailyRecordRepository struct {
	api   API
	table string
	now   func() time.Time
}

func NewDailyRecordRepository(api API, table string) *DailyRecordRepository {
	return &DailyRecordRepository{api: api, table: table, now: time.Now}
}

func (r *DailyRecordRepository) Get(ctx context.Context, league, date string) (dailyrecord.Record, bool, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            recordKey(league, date),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dailyrecord.Record{}, false, fmt.Errorf("get daily record league=%s date=%s: %w", league, date, err)
	}
	if len(out.Item) == 0 {
		return dailyrecord.Record{}, false, nil
	}

	record, err := recordFromItem(out.Item)
	if err != nil {
		return dailyrecord.Record{}, false, fmt.Errorf("decode daily record league=%s date=%s: %w", league, date, err)
	}
	return record, true, nil
}

// Upsert sets only the writable attributes, so anything else stored on the
// item survives.
func (r *DailyRecordRepository) Upsert(ctx context.Context, update dailyrecord.Update) error {
	input, err := r.updateInput(update)
	if err != nil {
		return err
	}
	if _, err := r.api.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("upsert daily record league=%s date=%s: %w", update.League, update.Date, err)
	}
	return nil
}

func (r *DailyRecordRepository) updateInput(update dailyrecord.Update) (*dynamodb.UpdateItemInput, error) {
	if strings.TrimSpace(update.League) == "" || strings.TrimSpace(update.Date) == "" {
		return nil, fmt.Errorf("daily record league and date are required")
	}

	games, err := encodeList(update.Games)
	if err != nil {
		return nil, fmt.Errorf("marshal daily record games: %w", err)
	}
	plays, err := encodeList(update.Plays)
	if err != nil {
		return nil, fmt.Errorf("marshal daily record plays: %w", err)
	}

	now := strconv.FormatInt(r.now().Unix(), 10)
	return &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key:       recordKey(update.League, update.Date),
		UpdateExpression: aws.String("SET #g = :g, #p = :p, #lu = :lu, #ds = :ds, #lk = :lk, #ua = :now, " +
			"#ca = if_not_exists(#ca, :now)"),
		ExpressionAttributeNames: map[string]string{
			"#g":  attrGames,
			"#p":  attrPlays,
			"#lu": attrLastUpdated,
			"#ds": attrDataSource,
			"#lk": attrPPGLocked,
			"#ua": attrUpdatedAt,
			"#ca": attrCreatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g":   &types.AttributeValueMemberS{Value: games},
			":p":   &types.AttributeValueMemberS{Value: plays},
			":lu":  &types.AttributeValueMemberS{Value: update.LastUpdated},
			":ds":  &types.AttributeValueMemberS{Value: update.DataSource},
			":lk":  &types.AttributeValueMemberBOOL{Value: update.PPGLocked},
			":now": &types.AttributeValueMemberN{Value: now},
		},
	}, nil
}

func recordKey(league, date string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrLeague:   &types.AttributeValueMemberS{Value: strings.ToLower(strings.TrimSpace(league))},
		attrGameDate: &types.AttributeValueMemberS{Value: strings.TrimSpace(date)},
	}
}

func recordFromItem(item map[string]types.AttributeValue) (dailyrecord.Record, error) {
	games, err := decodeList[game.Game](stringAttr(item, attrGames))
	if err != nil {
		return dailyrecord.Record{}, err
	}
	plays, err := decodeList[game.Play](stringAttr(item, attrPlays))
	if err != nil {
		return dailyrecord.Record{}, err
	}

	record := dailyrecord.Record{
		League:      stringAttr(item, attrLeague),
		Date:        stringAttr(item, attrGameDate),
		Games:       games,
		Plays:       plays,
		LastUpdated: stringAttr(item, attrLastUpdated),
		DataSource:  stringAttr(item, attrDataSource),
		CreatedAt:   unixAttr(item, attrCreatedAt),
		UpdatedAt:   unixAttr(item, attrUpdatedAt),
	}
	if v, ok := item[attrPPGLocked].(*types.AttributeValueMemberBOOL); ok {
		record.PPGLocked = v.Value
	}
	return record, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func unixAttr(item map[string]types.AttributeValue, name string) time.Time {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

func encodeList[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	return sonic.MarshalString(items)
}

func decodeList[T any](raw string) ([]T, error) {
	out := []T{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
