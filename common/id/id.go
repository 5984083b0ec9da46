package id

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered int64 ID unique across relay instances.
func New() int64 {
	return node.Generate().Int64()
}

// NewMessageID generates a client-minted correlation ID in the wire format
// the automation workflows already key on: <prefix>_<unix-millis>_<uuid8>.
func NewMessageID(prefix string) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), short)
}

// NewServerMessageID mints a correlation ID on the relay's snowflake node for
// sends that arrive without a caller-supplied ID. Same wire shape as
// NewMessageID; the uniqueness component is the snowflake in base36, so
// server-minted IDs stay ordered across relay instances. Requires Init.
func NewServerMessageID(prefix string) string {
	sf := snowflake.ID(New())
	return fmt.Sprintf("%s_%d_%s", prefix, sf.Time(), sf.Base36())
}
