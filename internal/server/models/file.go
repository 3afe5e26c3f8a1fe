// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// FileType is the classified kind of an uploaded file.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeExcel FileType = "excel"
	FileTypeText  FileType = "txt"
	FileTypeWord  FileType = "word"
	FileTypeOther FileType = "other"
)

// FileTypes lists every file type in display order.
var FileTypes = []FileType{FileTypePDF, FileTypeExcel, FileTypeText, FileTypeWord, FileTypeOther}

var extensionTypes = map[string]FileType{
	".pdf":  FileTypePDF,
	".xlsx": FileTypeExcel,
	".xls":  FileTypeExcel,
	".txt":  FileTypeText,
	".doc":  FileTypeWord,
	".docx": FileTypeWord,
}

var displayNames = map[FileType]string{
	FileTypePDF:   "PDF",
	FileTypeExcel: "Excel",
	FileTypeText:  "Text",
	FileTypeWord:  "Word",
	FileTypeOther: "Other",
}

// ClassifyFile derives the file type from the extension of name,
// case-insensitively. Unknown or missing extensions yield FileTypeOther.
// Leading dots do not start an extension, so ".pdf" has none.
func ClassifyFile(name string) FileType {
	base := strings.TrimLeft(BaseName(name), ".")
	ext := strings.ToLower(path.Ext(base))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return FileTypeOther
}

// DisplayName returns the human-readable name of t. Unknown codes are
// returned unchanged.
func (t FileType) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// BaseName strips any directory part from name, accepting both slash and
// backslash separators since browsers on Windows may send either. Names
// that only point at a directory ("." and "..") yield "".
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// HumanSize renders a byte count the way file listings show it.
func HumanSize(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size < kb:
		return fmt.Sprintf("%d bytes", size)
	case size < mb:
		return fmt.Sprintf("%.1f KB", float64(size)/kb)
	case size < gb:
		return fmt.Sprintf("%.1f MB", float64(size)/mb)
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/gb)
	}
}

// File is the metadata record of an uploaded payload. The bytes themselves
// live in blob storage under StorageKey.
type File struct {
	ID         string
	UserID     string
	StorageKey string
	Filename   string
	FileType   FileType
	UploadDate time.Time
	Size       int64
}

// Dashboard is the aggregated view over a set of files. FilesPerUser is
// only filled for the system-wide view.
type Dashboard struct {
	TotalFiles   int64
	Breakdown    map[string]int64
	FilesPerUser map[string]int64
}
