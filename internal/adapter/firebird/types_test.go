package firebird

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeName(t *testing.T) {
	tests := []struct {
		code, subType, precision, scale int64
		want                            string
	}{
		{typeSmallint, 0, 0, 0, "SMALLINT"},
		{typeInteger, 0, 0, 0, "INTEGER"},
		{typeBigint, 0, 0, 0, "BIGINT"},
		{typeInt128, 0, 0, 0, "INT128"},
		{typeInteger, 1, 9, -2, "NUMERIC(9,2)"},
		{typeBigint, 2, 18, -4, "DECIMAL(18,4)"},
		{typeSmallint, 0, 4, -1, "NUMERIC(4,1)"},
		{typeFloat, 0, 0, 0, "FLOAT"},
		{typeDouble, 0, 0, 0, "DOUBLE PRECISION"},
		{typeDate, 0, 0, 0, "DATE"},
		{typeTime, 0, 0, 0, "TIME"},
		{typeTimestamp, 0, 0, 0, "TIMESTAMP"},
		{typeTimestampTZ, 0, 0, 0, "TIMESTAMP WITH TIME ZONE"},
		{typeChar, 0, 0, 0, "CHAR"},
		{typeVarchar, 0, 0, 0, "VARCHAR"},
		{typeBoolean, 0, 0, 0, "BOOLEAN"},
		{typeDecfloat34, 0, 0, 0, "DECFLOAT(34)"},
		{typeBlob, 1, 0, 0, "BLOB SUB_TYPE TEXT"},
		{typeBlob, 0, 0, 0, "BLOB"},
		{typeBlob, 7, 0, 0, "BLOB SUB_TYPE 7"},
		{999, 0, 0, 0, "UNKNOWN(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, typeName(tt.code, tt.subType, tt.precision, tt.scale))
		})
	}
}

func TestCleanDefault(t *testing.T) {
	assert.Equal(t, "0", cleanDefault("DEFAULT 0"))
	assert.Equal(t, "'pending'", cleanDefault("  default 'pending' "))
	assert.Equal(t, "CURRENT_TIMESTAMP", cleanDefault("DEFAULT CURRENT_TIMESTAMP"))
	assert.Equal(t, "", cleanDefault(""))
}
