package service

import (
	"os"
	"testing"

	"github.com/Jae876/crestara/internal/testutil/dblock"
)

func TestMain(m *testing.M) {
	release := dblock.Acquire()
	code := m.Run()
	release()
	os.Exit(code)
}
