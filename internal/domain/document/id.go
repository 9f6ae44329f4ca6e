package document

import (
	"fmt"

	"github.com/google/uuid"
)

// chunkNamespace 片段 ID 的 UUIDv5 命名空间
var chunkNamespace = uuid.MustParse("6f1c2d0e-5a7b-4f3e-9c1d-2b8a4e6f7d90")

// ChunkID 由文件名、页码和序号派生确定性 ID，重复上传同一文件会得到相同 ID
func ChunkID(fileName string, page, sequence int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s|%d|%d", fileName, page, sequence))).String()
}
