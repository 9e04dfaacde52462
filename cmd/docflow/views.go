package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"docflow/internal/api"
)

var importStatusOrder = []string{"pending", "processing", "completed", "failed", "skipped"}

func buildImportStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(stats))
	rows := make([][]string, 0, len(stats))
	for _, key := range importStatusOrder {
		if count, ok := stats[key]; ok {
			rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(count)})
			seen[key] = struct{}{}
		}
	}
	extra := make([]string, 0)
	for key := range stats {
		if _, ok := seen[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func buildQueueJobRows(snapshot api.QueueSnapshot) [][]string {
	rows := make([][]string, 0, len(snapshot.Pending)+len(snapshot.Retrying)+1)
	appendJob := func(job api.QueueJob) {
		retry := "-"
		if job.RetryAt != "" {
			retry = formatDisplayTime(job.RetryAt)
		}
		rows = append(rows, []string{
			shortID(job.ID),
			formatStatusLabel(job.State),
			formatStatusLabel(job.Priority),
			job.Type,
			filepath.Base(job.Path),
			strconv.Itoa(job.Attempt),
			retry,
		})
	}
	if snapshot.InFlight != nil {
		appendJob(*snapshot.InFlight)
	}
	for _, job := range snapshot.Pending {
		appendJob(job)
	}
	for _, job := range snapshot.Retrying {
		appendJob(job)
	}
	return rows
}

func buildImportRows(items []api.ImportEntry) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := strings.TrimSpace(item.ErrorMessage)
		if detail == "" {
			detail = api.EntityKey(item)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			formatStatusLabel(item.Status),
			item.FileType,
			item.Filename,
			formatDisplayTime(firstNonEmpty(item.ProcessedAt, item.CreatedAt)),
			detail,
		})
	}
	return rows
}

func buildConflictRows(items []api.Conflict) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.OrderNumber,
			item.BaseOrderNumber,
			formatStatusLabel(item.Status),
			formatStatusLabel(item.SystemSuggestion),
			formatCounts(item.ExistingWindows, item.ExistingGlasses, item.NewWindows, item.NewGlasses),
			firstNonEmpty(item.DocumentAuthor, "-"),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func buildAuthorRows(items []api.AuthorMapping) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.AuthorName, strconv.FormatInt(item.UserID, 10), formatDisplayTime(item.UpdatedAt)})
	}
	return rows
}

func formatCounts(existingWindows, existingGlasses, newWindows, newGlasses int) string {
	return fmt.Sprintf("%d/%d -> %d/%d", existingWindows, existingGlasses, newWindows, newGlasses)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
