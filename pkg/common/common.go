package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const NA = "N/A"

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
	idNodeID   int64 = 1
)

// SetNodeID sets the snowflake node used by NewID. It only takes effect
// before the first id is generated.
func SetNodeID(id int64) {
	if id < 0 || id > 1023 {
		zap.S().Warnf("snowflake node id %d out of range, keeping %d", id, idNodeID)
		return
	}
	idNodeID = id
}

func node() *snowflake.Node {
	idNodeOnce.Do(func() {
		n, err := snowflake.NewNode(idNodeID)
		if err != nil {
			panic(err)
		}
		idNode = n
	})
	return idNode
}

// NewID returns a process-unique, time-ordered identifier.
func NewID() string {
	return node().Generate().String()
}

// IfEmptyStr returns defval when src is blank
func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}
