package util

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ISOTimeLayout 毫秒精度 UTC 时间戳
const ISOTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOTimeLayout)
}

// ParseObjectID 非法 id 返回 false
func ParseObjectID(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// NormalizeIdentity 用户名与邮箱统一小写存储
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PtrString 空串返回 nil
func PtrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PtrFloat64 零值返回 nil
func PtrFloat64(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
