package api

import (
	"context"

	"stockmeta/internal/metadata"
	"stockmeta/internal/platform"
	"stockmeta/internal/queue"
	"stockmeta/internal/view"
	"stockmeta/internal/workspace"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item queue.Item) QueueItem {
	dto := QueueItem{
		ID:         item.ID,
		FileName:   item.File.Name,
		MIMEType:   item.File.MIMEType,
		Size:       item.File.Size,
		Status:     string(item.Status),
		PreviewURL: item.PreviewURL,
		Error:      item.Error,
		Result:     metadata.Wrap(item.Result),
	}
	if !item.AddedAt.IsZero() {
		dto.AddedAt = item.AddedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts queue records into API DTOs. It never returns nil
// so empty queues encode as [].
func FromQueueItems(items []queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStats converts queue counters.
func FromStats(s view.Stats) QueueStats {
	return QueueStats{
		Total:      s.Total,
		Pending:    s.Pending,
		Processing: s.Processing,
		Completed:  s.Completed,
		Failed:     s.Failed,
		Progress:   s.Progress(),
	}
}

// FromState converts the workspace state.
func FromState(st workspace.State) WorkspaceState {
	return WorkspaceState{
		Mode:       st.Mode.String(),
		UploadMode: string(st.UploadMode),
		Platform:   st.Platform.String(),
		Settings:   st.Settings,
		Running:    st.Running,
		Paused:     st.Paused,
		HasAPIKey:  st.HasAPIKey,
	}
}

// BuildSnapshot renders q in display order together with ws state.
func BuildSnapshot(ctx context.Context, ws *workspace.Workspace, q queue.Queue) Snapshot {
	items := q.Items()
	return Snapshot{
		Version: q.Version(),
		Items:   FromQueueItems(view.Sort(items)),
		Stats:   FromStats(view.Counts(items)),
		State:   FromState(ws.State(ctx)),
	}
}

// Platforms lists every platform with the settings its preset yields from
// the defaults.
func Platforms() []PlatformInfo {
	all := platform.All()
	out := make([]PlatformInfo, 0, len(all))
	for _, p := range all {
		info := PlatformInfo{Name: p.String()}
		if _, ok := platform.PresetFor(p); ok {
			s := p.Apply(metadata.DefaultSettings())
			info.Settings = &s
		}
		out = append(out, info)
	}
	return out
}
