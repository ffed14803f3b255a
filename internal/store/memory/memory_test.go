package memory

import (
	"testing"

	"github.com/vovakirdan/hashchat-engine/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, New())
}
