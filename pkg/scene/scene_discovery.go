package scene

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-photon-mapper/pkg/geometry"
)

const (
	builtinGroup  = "Built-in Scenes"
	fileGroup     = "Scene Files"
	fileExtension = ".obj"
	fileIDPrefix  = "file:"
)

// ErrSceneNotFound is returned when no built-in or file scene has the requested ID
var ErrSceneNotFound = errors.New("scene not found")

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // Display name including the variant
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "file"
	FilePath    string `json:"filePath"`    // Path to the scene file (file type only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse is the grouped scene listing
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

var builtinScenes = []struct {
	info SceneInfo
	new  func(geometry.RasterConfig) *Scene
}{
	{
		info: SceneInfo{
			ID:          "cornell-box",
			Name:        "Cornell Box",
			DisplayName: "Cornell Box",
			Description: "Cornell box with a mirror sphere and a glass ring",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		new: NewCornellScene,
	},
	{
		info: SceneInfo{
			ID:          "ring",
			Name:        "Ring",
			DisplayName: "Ring",
			Description: "Reflective ring casting a caustic on a floor",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		new: NewRingScene,
	},
}

// BuiltinScenes returns the scenes constructed in code
func BuiltinScenes() []SceneInfo {
	infos := make([]SceneInfo, len(builtinScenes))
	for i, b := range builtinScenes {
		infos[i] = b.info
	}
	return infos
}

// findScenesDir returns dir if given, otherwise the first scenes directory found
// next to or above the working directory. "" means none exists.
func findScenesDir(dir string) string {
	if dir != "" {
		return dir
	}
	for _, path := range []string{"scenes", "../scenes"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ListSceneFiles scans dir (or ./scenes, ../scenes when dir is empty) for scene files
func ListSceneFiles(dir string) ([]SceneInfo, error) {
	scenesDir := findScenesDir(dir)
	if scenesDir == "" {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(scenesDir, "*"+fileExtension))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	scenes := []SceneInfo{}
	for _, filePath := range files {
		info, err := ParseSceneMetadata(filePath)
		if err != nil {
			// keep the fallback values, the file may still load
			fmt.Printf("Warning: failed to parse metadata for %s: %v\n", filePath, err)
		}
		scenes = append(scenes, info)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// ParseSceneMetadata extracts metadata from the header comments of a scene file:
//
//	# Scene: Name
//	# Variant: Variant
//	# Description: Text
//	# Group: Group
//
// Parsing stops at the first line that is not a comment. A missing file yields the
// fallback values derived from the file name.
func ParseSceneMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	info := SceneInfo{
		ID:          fileIDPrefix + nameWithoutExt,
		Name:        titleCase(nameWithoutExt),
		DisplayName: titleCase(nameWithoutExt),
		Group:       fileGroup,
		Type:        "file",
		FilePath:    filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		return info, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		content, ok := strings.CutPrefix(line, "# ")
		if !ok {
			continue
		}

		switch {
		case strings.HasPrefix(content, "Scene:"):
			info.Name = metadataValue(content, "Scene:")
		case strings.HasPrefix(content, "Variant:"):
			info.Variant = metadataValue(content, "Variant:")
		case strings.HasPrefix(content, "Description:"):
			info.Description = metadataValue(content, "Description:")
		case strings.HasPrefix(content, "Group:"):
			info.Group = metadataValue(content, "Group:")
		}
	}

	if info.Variant != "" {
		info.DisplayName = fmt.Sprintf("%s - %s", info.Name, info.Variant)
	} else {
		info.DisplayName = info.Name
	}

	return info, scanner.Err()
}

func metadataValue(content, key string) string {
	return strings.TrimSpace(strings.TrimPrefix(content, key))
}

// ListAllScenes returns built-in and file scenes, grouped by category.
// The built-in group comes first, the rest are alphabetical.
func ListAllScenes(dir string) (ScenesResponse, error) {
	var response ScenesResponse

	files, err := ListSceneFiles(dir)
	if err != nil {
		return response, fmt.Errorf("failed to list scene files: %w", err)
	}

	groupMap := make(map[string][]SceneInfo)
	for _, info := range append(BuiltinScenes(), files...) {
		groupMap[info.Group] = append(groupMap[info.Group], info)
	}

	var groupNames []string
	for name := range groupMap {
		if name != builtinGroup {
			groupNames = append(groupNames, name)
		}
	}
	sort.Strings(groupNames)

	if scenes, ok := groupMap[builtinGroup]; ok {
		response.Groups = append(response.Groups, SceneGroup{Name: builtinGroup, Scenes: scenes})
	}
	for _, name := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{Name: name, Scenes: groupMap[name]})
	}

	return response, nil
}

// Open builds the scene an ID refers to: a built-in ID, "file:<name>" for a file
// in the scenes directory, or a path to a scene file
func Open(id, dir string, opts LoadOptions) (*Scene, error) {
	s, err := OpenKnown(id, dir, opts)
	if !errors.Is(err, ErrSceneNotFound) || strings.HasPrefix(id, fileIDPrefix) {
		return s, err
	}

	if _, statErr := os.Stat(id); statErr == nil {
		return LoadFile(id, opts)
	}
	return nil, err
}

// OpenKnown is Open without the path fallback: only built-in IDs and "file:"
// scenes inside the scenes directory resolve
func OpenKnown(id, dir string, opts LoadOptions) (*Scene, error) {
	for _, b := range builtinScenes {
		if b.info.ID == id {
			return b.new(opts.Raster), nil
		}
	}

	name, ok := strings.CutPrefix(id, fileIDPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	scenesDir := findScenesDir(dir)
	if scenesDir == "" {
		return nil, fmt.Errorf("%w: %s (no scenes directory)", ErrSceneNotFound, id)
	}
	path, err := sceneFilePath(scenesDir, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return LoadFile(path, opts)
}

// sceneFilePath resolves a scene name to a file directly inside scenesDir
func sceneFilePath(scenesDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty scene name")
	}
	path := filepath.Join(scenesDir, name+fileExtension)
	rel, err := filepath.Rel(scenesDir, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.Dir(rel) != "." {
		return "", fmt.Errorf("scene %q is outside %s", name, scenesDir)
	}
	return path, nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
