package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/ruslano69/tdtp-deid/pkg/core/table"
)

// Coerce приводит значение поля к каноническому строковому виду.
// Чистая функция: одинаковый вход всегда дает одинаковый результат.
//
//	nil            -> NULL (пустая строка)
//	string         -> NFC-нормализованный текст
//	bool           -> "true" / "false"
//	целые          -> десятичная запись
//	float          -> кратчайшая запись, целые до 2^53 без дробной части (34.0 -> "34")
//	json.Number    -> как есть
//	time.Time      -> RFC 3339 в UTC
//	[]byte         -> текст
//	прочее         -> компактный JSON
func Coerce(v any) string {
	switch x := v.(type) {
	case nil:
		return table.Null
	case string:
		return norm.NFC.String(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return norm.NFC.String(string(x))
	case fmt.Stringer:
		return norm.NFC.String(x.String())
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func formatFloat(f float64, bits int) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
