package database

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeCheckViolation     = "23514"
)

// IsUniqueViolation は一意制約違反かどうかを判定する。
// constraintが空でない場合は制約名（インデックス名）も一致する必要がある。
func IsUniqueViolation(err error, constraint string) bool {
	return isPQCode(err, codeUniqueViolation, constraint)
}

// IsExclusionViolation は排他制約違反かどうかを判定する。
func IsExclusionViolation(err error, constraint string) bool {
	return isPQCode(err, codeExclusionViolation, constraint)
}

// IsCheckViolation はCHECK制約違反かどうかを判定する。
func IsCheckViolation(err error, constraint string) bool {
	return isPQCode(err, codeCheckViolation, constraint)
}

// IsUnavailable はデータベースに到達できないことによるエラーかどうかを判定する。
// クエリの内容に起因するエラー（制約違反・構文エラーなど）はfalseを返す。
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: Connection Exception, Class 57: Operator Intervention（admin_shutdown等）
		switch pqErr.Code.Class() {
		case "08", "57":
			return true
		}
	}
	return false
}

func isPQCode(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
