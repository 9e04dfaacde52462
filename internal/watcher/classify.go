package watcher

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"docflow/internal/importer"
)

// Source names a monitored folder kind.
type Source string

const (
	SourceGlass  Source = "glass"
	SourceOrders Source = "orders"
)

// Classification is the routing decision for one file.
type Classification struct {
	DocumentType importer.DocumentType
	Correction   bool
}

var (
	folder            = cases.Fold()
	orderSpecMarkers  = []string{"uzyte", "użyte", "bele"}
	correctionMarkers = []string{"korekta", "correction"}
)

// Classify maps a file name in the given source folder to a document type.
// The bool is false for files that are not imported from that folder.
func Classify(source Source, path string) (Classification, bool) {
	name := filepath.Base(path)
	if Ignored(name) {
		return Classification{}, false
	}
	folded := folder.String(name)
	ext := filepath.Ext(folded)

	var docType importer.DocumentType
	switch source {
	case SourceGlass:
		switch ext {
		case ".txt":
			docType = importer.GlassOrder
		case ".csv":
			docType = importer.GlassDelivery
		}
	case SourceOrders:
		if ext == ".csv" && containsAny(folded, orderSpecMarkers) {
			docType = importer.OrderSpec
		}
	}
	if docType == "" {
		return Classification{}, false
	}
	return Classification{DocumentType: docType, Correction: containsAny(folded, correctionMarkers)}, true
}

// Ignored reports names that are never imported: hidden files, office lock
// files and in-progress copies.
func Ignored(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".part")
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
