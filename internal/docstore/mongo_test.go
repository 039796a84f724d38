package docstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslateMongoError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no documents", mongo.ErrNoDocuments, ErrNotFound},
		{"no query plan", mongo.CommandError{Code: 291, Message: "No query solutions"}, ErrIndexMissing},
		{"sort memory limit", mongo.CommandError{Code: 292, Message: "Sort exceeded memory limit"}, ErrIndexMissing},
		{"duplicate key", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}, ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateMongoError(tt.in), tt.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, translateMongoError(other))
	assert.NoError(t, translateMongoError(nil))
}

func TestMongoFilter(t *testing.T) {
	f := mongoFilter([]Filter{Eq("id", "x"), Eq("user_id", "u1")})
	assert.Equal(t, bson.D{{Key: "_id", Value: "x"}, {Key: "user_id", Value: "u1"}}, f)
	assert.Equal(t, bson.D{}, mongoFilter(nil))
}
