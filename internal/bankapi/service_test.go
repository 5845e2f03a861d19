package bankapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type doc struct {
	ID      string  `json:"id"`
	Amount  string  `json:"amount"`
	Note    *string `json:"note"`
	Enabled bool    `json:"enabled"`
}

func TestEncodeDecode(t *testing.T) {
	in := []doc{{ID: "a", Amount: "12.50", Enabled: true}, {ID: "b", Amount: "-1"}}

	v, err := Encode(in)
	require.NoError(t, err)
	require.Len(t, v.GetListValue().GetValues(), 2)

	var out []doc
	require.NoError(t, Decode(v, &out))
	assert.Equal(t, in, out)
}

func TestDecode_TypeMismatch(t *testing.T) {
	var out doc
	err := Decode(structpb.NewStringValue("x"), &out)
	require.Error(t, err)
}

func TestFields(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		FieldID:     "card_001",
		FieldPage:   2,
		FieldActive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "card_001", StringField(req, FieldID))
	assert.Equal(t, 2, IntField(req, FieldPage, 0))
	assert.Equal(t, 20, IntField(req, FieldSize, 20))
	assert.True(t, BoolField(req, FieldActive))
	assert.False(t, BoolField(nil, FieldActive))
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/securebank.v1.BankingService/GetCard", FullMethod(MethodGetCard))
	assert.Len(t, ServiceDesc.Methods, 6)
}
