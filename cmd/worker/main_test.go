package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/shelfboard/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.NotPanics(t, main)
}
