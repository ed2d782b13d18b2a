package memory

import "github.com/marmos91/dittocloud/internal/logger"

// demoTree is created by seedDemo under a single device.
var demoTree = []struct {
	dir     string
	name    string
	content string
}{
	{"Documents", "readme.txt", "Welcome to DittoCloud!\n"},
	{"Documents", "notes.md", "# Notes\n\n- sync nightly\n"},
	{"Photos", "", ""},
	{"Backups", "", ""},
}

// seedDemo populates a device named "Laptop" with a few folders and files.
// Folder creation is deterministic, so IDs are stable across processes that
// seed the same tree.
func (s *Service) seedDemo() {
	deviceID := s.AddDevice("Laptop")

	folders := make(map[string]int64)
	for _, entry := range demoTree {
		folderID, ok := folders[entry.dir]
		if !ok {
			id, err := s.AddFolder(deviceID, entry.dir)
			if err != nil {
				logger.Warn("memory: seeding %s failed: %v", entry.dir, err)
				continue
			}
			folders[entry.dir] = id
			folderID = id
		}
		if entry.name == "" {
			continue
		}
		if _, err := s.AddFile(folderID, entry.name, []byte(entry.content), s.now()); err != nil {
			logger.Warn("memory: seeding %s/%s failed: %v", entry.dir, entry.name, err)
		}
	}

	logger.Debug("memory: seeded demo device %d", deviceID)
}
