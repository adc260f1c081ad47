package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrConflict は一意制約違反により書き込みが拒否されたことを表す。
// 呼び出し側は既存行を読み直して処理を継続する。
var ErrConflict = errors.New("repository: unique constraint conflict")

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// translateError はpqの一意制約違反をErrConflictに変換する。
// それ以外のエラーはそのまま返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
