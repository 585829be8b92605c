package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// 输入数据位置：本地文件或者mongo的{db}.{col}
type Path struct {
	File string
	DB   string
	Coll string
}

func NewPath(filePathOrColl string) (*Path, error) {
	// 检查filePathOrColl是否作为文件存在
	if _, err := os.Stat(filePathOrColl); err == nil {
		return &Path{
			File: filePathOrColl,
		}, nil
	}
	dbDotColl := strings.TrimSpace(filePathOrColl)
	if dbDotColl == "" {
		return nil, nil
	}
	// 尚不存在的文件（如导出目标）按扩展名识别
	switch strings.ToLower(filepath.Ext(dbDotColl)) {
	case ".json", ".yaml", ".yml", ".bson", ".zip":
		return &Path{
			File: dbDotColl,
		}, nil
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("%s is neither an existing file nor {db}.{col}", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) IsFile() bool {
	return p.File != ""
}

func (p *Path) String() string {
	if p.IsFile() {
		return p.File
	}
	return p.DB + "." + p.Coll
}

// mongo数据在缓存目录中的文件名
func (p *Path) CachePath(cacheDir string) string {
	if p.IsFile() {
		path, err := filepath.Abs(p.File)
		if err != nil {
			return p.File
		}
		return path
	}
	return filepath.Join(cacheDir, p.DB+"."+p.Coll+".bson")
}
