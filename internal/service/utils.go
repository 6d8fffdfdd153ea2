package service

import (
	"encoding/json"
	"fmt"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

// jsonMeta marshals transaction metadata. The inputs are built from known
// types, so a marshal failure is a programming error and yields nil.
func jsonMeta(m map[string]any) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
