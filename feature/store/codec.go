package store

import (
	"encoding/json"
	"fmt"

	"collection-engine/core/collection"
)

// encodeValue disassembles v through vt and stores the token as JSON text.
func encodeValue(vt collection.ValueType, v any) (string, error) {
	token := v
	if vt != nil && v != nil {
		var err error
		if token, err = vt.Disassemble(v); err != nil {
			return "", err
		}
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to encode token %T: %w", token, err)
	}
	return string(raw), nil
}

// decodeValue reverses encodeValue.
func decodeValue(vt collection.ValueType, text string) (any, error) {
	var token any
	if err := json.Unmarshal([]byte(text), &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	if vt == nil || token == nil {
		return token, nil
	}
	return vt.Assemble(token)
}

func encodeOptional(vt collection.ValueType, v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	text, err := encodeValue(vt, v)
	if err != nil {
		return nil, err
	}
	return &text, nil
}

func ownerOf(key collection.Key) string {
	return fmt.Sprint(key.OwnerID)
}

func toRecord(p collection.Persister, key collection.Key, row collection.Row) (CollectionRow, error) {
	value, err := encodeValue(p.ElementType(), row.Value)
	if err != nil {
		return CollectionRow{}, fmt.Errorf("element of %s: %w", key, err)
	}
	record := CollectionRow{
		Role:     key.Role.String(),
		OwnerID:  ownerOf(key),
		Position: row.Index,
		Value:    value,
	}
	switch p.Classification() {
	case collection.OrderedMap:
		if record.RowKey, err = encodeOptional(p.IndexType(), row.Key); err != nil {
			return CollectionRow{}, fmt.Errorf("key of %s: %w", key, err)
		}
	case collection.IDBag:
		if record.RowID, err = encodeOptional(p.IndexType(), row.ID); err != nil {
			return CollectionRow{}, fmt.Errorf("identifier of %s: %w", key, err)
		}
	}
	return record, nil
}

func fromRecord(p collection.Persister, record CollectionRow) (collection.Row, error) {
	value, err := decodeValue(p.ElementType(), record.Value)
	if err != nil {
		return collection.Row{}, fmt.Errorf("row %d: %w", record.ID, err)
	}
	row := collection.Row{Index: record.Position, Value: value}
	if record.RowKey != nil {
		if row.Key, err = decodeValue(p.IndexType(), *record.RowKey); err != nil {
			return collection.Row{}, fmt.Errorf("row %d key: %w", record.ID, err)
		}
	}
	if record.RowID != nil {
		if row.ID, err = decodeValue(p.IndexType(), *record.RowID); err != nil {
			return collection.Row{}, fmt.Errorf("row %d identifier: %w", record.ID, err)
		}
	}
	return row, nil
}
