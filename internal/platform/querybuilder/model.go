package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// columnIndex caches the db-tagged exported fields of a model type.
var columnIndex sync.Map // reflect.Type -> []modelColumn

type modelColumn struct {
	name  string
	field int
}

// InsertModel inserts the db-tagged fields of model, in declaration order.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := columnsAndValues(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

func columnsAndValues(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	columns := columnsOf(value.Type())
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", value.Type())
	}

	names := make([]string, len(columns))
	vals := make([]any, len(columns))
	for i, col := range columns {
		names[i] = col.name
		vals[i] = value.Field(col.field).Interface()
	}
	return names, vals, nil
}

func columnsOf(typ reflect.Type) []modelColumn {
	if cached, ok := columnIndex.Load(typ); ok {
		return cached.([]modelColumn)
	}

	columns := make([]modelColumn, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		columns = append(columns, modelColumn{name: name, field: i})
	}
	columnIndex.Store(typ, columns)
	return columns
}
