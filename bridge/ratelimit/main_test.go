package ratelimit

import (
	"os"
	"testing"

	"github.com/avelune/xmrbridge/core/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitLogger(nil); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
