package postgres

import (
	"testing"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_Unreachable(t *testing.T) {
	b := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "sim",
		Password: "sim",
		Database: "fleet",
	}, zerolog.Nop())

	err := b.Init()
	assert.Error(t, err)
	assert.Nil(t, b.Backend)
}

func TestClose_BeforeInit(t *testing.T) {
	b := New(config.DBConfig{}, zerolog.Nop())
	assert.NoError(t, b.Close())
}
