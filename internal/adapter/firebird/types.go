package firebird

import "fmt"

// Field type codes from RDB$FIELDS.RDB$FIELD_TYPE.
const (
	typeSmallint    = 7
	typeInteger     = 8
	typeQuad        = 9
	typeFloat       = 10
	typeDate        = 12
	typeTime        = 13
	typeChar        = 14
	typeBigint      = 16
	typeBoolean     = 23
	typeDecfloat16  = 24
	typeDecfloat34  = 25
	typeInt128      = 26
	typeDouble      = 27
	typeTimeTZ      = 28
	typeTimestampTZ = 29
	typeTimestamp   = 35
	typeVarchar     = 37
	typeCString     = 40
	typeBlobID      = 45
	typeBlob        = 261
)

var simpleTypes = map[int64]string{
	typeQuad:        "QUAD",
	typeFloat:       "FLOAT",
	typeDate:        "DATE",
	typeTime:        "TIME",
	typeChar:        "CHAR",
	typeBoolean:     "BOOLEAN",
	typeDecfloat16:  "DECFLOAT(16)",
	typeDecfloat34:  "DECFLOAT(34)",
	typeDouble:      "DOUBLE PRECISION",
	typeTimeTZ:      "TIME WITH TIME ZONE",
	typeTimestampTZ: "TIMESTAMP WITH TIME ZONE",
	typeTimestamp:   "TIMESTAMP",
	typeVarchar:     "VARCHAR",
	typeCString:     "CSTRING",
	typeBlobID:      "BLOB_ID",
}

var integerTypes = map[int64]string{
	typeSmallint: "SMALLINT",
	typeInteger:  "INTEGER",
	typeBigint:   "BIGINT",
	typeInt128:   "INT128",
}

// typeName renders the SQL type of a domain. Exact numerics are stored as
// integers with a sub type of 1 (NUMERIC) or 2 (DECIMAL) and a negative scale.
func typeName(code, subType, precision, scale int64) string {
	if name, ok := integerTypes[code]; ok {
		switch {
		case subType == 1:
			return fmt.Sprintf("NUMERIC(%d,%d)", precision, -scale)
		case subType == 2:
			return fmt.Sprintf("DECIMAL(%d,%d)", precision, -scale)
		case scale < 0:
			return fmt.Sprintf("NUMERIC(%d,%d)", precision, -scale)
		}
		return name
	}
	if code == typeBlob {
		if subType == 1 {
			return "BLOB SUB_TYPE TEXT"
		}
		if subType == 0 {
			return "BLOB"
		}
		return fmt.Sprintf("BLOB SUB_TYPE %d", subType)
	}
	if name, ok := simpleTypes[code]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}

func isCharacterType(code int64) bool {
	return code == typeChar || code == typeVarchar || code == typeCString
}
