package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrServiceNotFound は予約の参照先サービスが存在しない場合に返される。
var ErrServiceNotFound = errors.New("referenced service not found")

// pgInvalidTextRepresentation はUUID列に不正な文字列を渡した場合のSQLSTATE。
const pgInvalidTextRepresentation = "22P02"

// isInvalidTextRepresentation はエラーがUUID等の形式不正によるものかを判定する。
// 該当する場合は「見つからない」として扱う。
func isInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgInvalidTextRepresentation
	}
	return false
}
