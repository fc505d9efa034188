package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/markdown"
)

type object map[string]any

func decodeObject(raw []byte) object {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	obj, _ := v.(map[string]any)
	return obj
}

func (o object) str(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

func (o object) strOr(key, fallback string) string {
	if s, ok := o.str(key); ok {
		return s
	}
	return fallback
}

func (o object) boolean(key string) bool {
	b, _ := o[key].(bool)
	return b
}

func (o object) intVal(key string) (int64, bool) {
	n, ok := o[key].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	return v, err == nil
}

func (o object) uintVal(key string) uint64 {
	n, ok := o[key].(json.Number)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (o object) obj(key string) object {
	m, _ := o[key].(map[string]any)
	return m
}

func (o object) stringList(key string) []string {
	items, _ := o[key].([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var builtinNames = map[string]string{
	"read":                   "Read",
	"write":                  "Write",
	"edit":                   "Edit",
	"bash":                   "Bash",
	"agents_resolve":         "AgentsResolve",
	"glob_search":            "GlobSearch",
	"grep":                   "Grep",
	"todo_read":              "TodoRead",
	"todo_write":             "TodoWrite",
	"done":                   "Done",
	"skill_search":           "SkillSearch",
	"skill_load":             "SkillLoad",
	"tool_output_cache":      "ToolOutputCache",
	"tool_output_cache_grep": "ToolOutputCacheGrep",
	"lane_create":            "LaneCreate",
	"lane_list":              "LaneList",
	"lane_status":            "LaneStatus",
	"lane_close":             "LaneClose",
	"lane_gc":                "LaneGc",
	"search":                 "Search",
	"web_search":             "WebSearch",
}

func displayName(tool string) string {
	if name, ok := builtinNames[tool]; ok {
		return name
	}
	return tool
}

func shortID(value string) string {
	rs := []rune(value)
	if len(rs) > 8 {
		rs = rs[:8]
	}
	return string(rs)
}

func (d *Decoder) relativeOrBase(p string) string {
	if d.Cwd != "" {
		if rel, err := filepath.Rel(d.Cwd, p); err == nil && !strings.HasPrefix(rel, "..") && filepath.IsAbs(p) {
			return filepath.ToSlash(rel)
		}
	}
	if base := filepath.Base(p); base != "." && base != "/" {
		return base
	}
	return p
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func webSearchQueries(args object) []string {
	if q := args.stringList("queries"); len(q) > 0 {
		return q
	}
	if action := args.obj("action"); action != nil {
		return action.stringList("queries")
	}
	return nil
}

func webSearchQueriesFromText(raw string) []string {
	_, rest, ok := strings.Cut(raw, "queries=")
	if !ok {
		return nil
	}
	for _, marker := range []string{" | sources=", " | source_count=", " | status=", " | engine="} {
		if i := strings.Index(rest, marker); i >= 0 {
			rest = rest[:i]
			break
		}
	}
	var out []string
	for part := range strings.SplitSeq(rest, " | ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func webSearchDetail(queries []string) string {
	if len(queries) == 0 {
		return "Summary"
	}
	return convo.TruncateChars(strings.Join(queries, " | "), maxArgLength)
}

// toolCallSummary returns the label and detail shown when a tool starts.
func (d *Decoder) toolCallSummary(tool string, rawArgs json.RawMessage) (string, string) {
	args := decodeObject(rawArgs)
	switch tool {
	case "web_search":
		return "WebSearch:", webSearchDetail(webSearchQueries(args))
	case "lane_create":
		seed := ""
		if s, _ := args.str("seed_context"); strings.TrimSpace(s) != "" {
			seed = " +seed"
		}
		return "LaneCreate:", fmt.Sprintf("task=%s backend=%s%s",
			args.strOr("task_id", "(no task)"), args.strOr("mux_backend", "tmux"), seed)
	case "lane_status":
		return "LaneStatus:", "lane=" + shortID(args.strOr("lane_id", ""))
	case "lane_close":
		return "LaneClose:", "lane=" + shortID(args.strOr("lane_id", ""))
	case "lane_list":
		return "LaneList:", ""
	case "lane_gc":
		ttl := "?"
		if n, ok := args.intVal("idle_ttl_minutes"); ok && n >= 0 {
			ttl = strconv.FormatInt(n, 10)
		}
		return "LaneGc:", "ttl=" + ttl + "m"
	case "read":
		name := baseName(args.strOr("file_path", ""))
		var parts []string
		if n, ok := args.intVal("offset"); ok {
			parts = append(parts, fmt.Sprintf("offset=%d", n))
		}
		if n, ok := args.intVal("limit"); ok {
			parts = append(parts, fmt.Sprintf("limit=%d", n))
		}
		if len(parts) > 0 {
			name = fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
		}
		return "Read:", name
	case "write":
		return "Write:", baseName(args.strOr("file_path", ""))
	case "edit":
		return "Edit:", baseName(args.strOr("file_path", ""))
	case "bash":
		return "Bash:", convo.TruncateChars(args.strOr("command", ""), maxArgLength)
	case "grep":
		where := d.relativeOrBase(args.strOr("path", ""))
		if pattern := args.strOr("pattern", ""); pattern != "" {
			where += " pattern=" + convo.TruncateChars(pattern, maxArgLength)
		}
		return "Grep:", where
	case "skill_load":
		return "SkillLoad:", args.strOr("name", "")
	case "tool_output_cache_grep":
		return "Tool Output Cache Grep:", convo.TruncateChars(args.strOr("pattern", ""), maxArgLength)
	case "tool_output_cache":
		return "Tool Output Cache:", ""
	}
	text := compactJSON(rawArgs)
	var s string
	if json.Unmarshal(rawArgs, &s) == nil {
		text = s
	}
	return displayName(tool) + ":", convo.TruncateChars(text, maxArgLength)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return string(raw)
	}
	return b.String()
}

// looksLikeError classifies a tool result by flag and leading text.
func looksLikeError(tool, text string, isError bool) bool {
	if isError {
		return true
	}
	lower := strings.ToLower(text)
	for _, prefix := range []string{"error:", "security error", "command timed out"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if tool == "read" {
		for _, prefix := range []string{"file not found", "path is a directory", "offset exceeds", "error reading"} {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
	}
	return false
}

type previewTool struct {
	name  string
	lines int
}

var previewTools = map[string]previewTool{
	"bash":       {"Bash", bashErrorLines},
	"read":       {"Read", readPreviewLines},
	"skill_load": {"SkillLoad", skillLoadPreviewLines},
}

// toolResultLines renders a finished tool call.
func (d *Decoder) toolResultLines(tool, raw string, isError bool) []convo.Line {
	cleaned := strings.TrimSpace(redactRefMarkers(raw))
	failed := looksLikeError(tool, cleaned, isError)
	icon, kind := "✔", convo.KindToolResult
	if failed {
		icon, kind = "✖", convo.KindError
	}

	if lines := laneResultLines(tool, raw, icon, kind, failed); lines != nil {
		return lines
	}
	if tool == "edit" {
		if lines := d.editResultLines(raw, icon, kind); lines != nil {
			return lines
		}
	}
	if p, ok := previewTools[tool]; ok {
		header := p.name + " done"
		if failed {
			header = p.name + " failed"
		}
		lines := []convo.Line{summaryLine(icon, header, kind)}
		if !failed || cleaned == "" || (tool == "bash" && cleaned == "(no output)") {
			return lines
		}
		return append(lines, previewBlock(cleaned, p.lines, kind)...)
	}
	switch tool {
	case "tool_output_cache_grep":
		if strings.HasPrefix(cleaned, "No matches for:") {
			return []convo.Line{summaryLine(icon, convo.TruncateChars(cleaned, maxHeaderLength), kind)}
		}
		matches := 0
		for _, line := range splitLines(raw) {
			if strings.HasPrefix(line, "ref:") {
				matches++
			}
		}
		lines := []convo.Line{summaryLine(icon, fmt.Sprintf("tool_output_cache_grep matches: %d", matches), kind)}
		return append(lines, previewBlock(cleaned, defaultPreviewLines, kind)...)
	case "tool_output_cache":
		lines := []convo.Line{summaryLine(icon, "tool_output_cache", kind)}
		return append(lines, previewBlock(cleaned, defaultPreviewLines, kind)...)
	case "web_search":
		return []convo.Line{summaryLine(icon, webSearchResultLabel(cleaned, failed), kind)}
	}

	header := "result"
	switch {
	case cleaned != "":
		header = convo.TruncateChars(splitLines(cleaned)[0], maxHeaderLength)
	case failed:
		header = "error"
	}
	lines := []convo.Line{summaryLine(icon, tool+" "+header, kind)}
	return append(lines, previewBlock(cleaned, defaultPreviewLines, kind)...)
}

func webSearchResultLabel(raw string, failed bool) string {
	var queries []string
	if obj := decodeObject([]byte(raw)); obj != nil {
		queries = webSearchQueries(obj)
	} else {
		queries = webSearchQueriesFromText(raw)
	}
	if len(queries) == 0 {
		if failed {
			return "WebSearch: Failed"
		}
		return "WebSearch: Summary"
	}
	return "WebSearch: " + webSearchDetail(queries)
}

// editResultLines renders an edit result carrying a summary and diff.
// It returns nil when raw is not such a payload.
func (d *Decoder) editResultLines(raw, icon string, kind convo.Kind) []convo.Line {
	parsed := decodeObject([]byte(raw))
	if parsed == nil {
		return nil
	}
	summary := strings.TrimSpace(parsed.strOr("summary", ""))
	diff := strings.TrimSpace(strings.ReplaceAll(parsed.strOr("diff", ""), "\r\n", "\n"))
	if summary == "" && diff == "" {
		return nil
	}
	header := summary
	if header == "" {
		header = "updated"
	}
	lines := []convo.Line{summaryLine(icon, "edit "+convo.TruncateChars(header, maxHeaderLength), kind)}
	if diff == "" {
		return lines
	}
	truncatedHint := parsed.boolean("truncated")
	lang := resolveLanguage(parsed.strOr("language", ""), parsed.strOr("file_path", ""))
	if looksLikeUnifiedDiff(diff) {
		body, truncated := limitedDiff(d.md.Highlighter(), diff, lang)
		lines = append(lines, body...)
		if truncated || truncatedHint {
			lines = append(lines, detailLine(convo.KindDiffMeta, detailIndent+"..."))
		}
		return lines
	}
	lines = append(lines, prefixBlock(detailIndent, detailIndent, convo.KindDiffMeta, convo.Detail, diff)...)
	if truncatedHint {
		lines = append(lines, detailLine(convo.KindDiffMeta, detailIndent+"..."))
	}
	return lines
}

func resolveLanguage(hint, filePath string) string {
	if lang := markdown.NormalizeLanguage(hint); lang != "" {
		return lang
	}
	return markdown.LanguageFromPath(filePath)
}

// permissionPreviewLines renders the diff a tool proposes before the
// user is asked to allow it.
func (d *Decoder) permissionPreviewLines(event object) []convo.Line {
	tool := event.strOr("tool", "tool")
	diff := event.strOr("diff", "")
	summary := event.strOr("summary", "")
	truncatedHint := event.boolean("truncated")
	lines := []convo.Line{
		convo.Blank(),
		summaryLine("", "Proposed "+tool+" changes (preview)", convo.KindStatus),
	}
	if strings.TrimSpace(diff) == "" && strings.TrimSpace(summary) == "" {
		return append(lines, detailLine(convo.KindDiffMeta, detailIndent+"Preview: no diff content"))
	}
	lang := resolveLanguage(event.strOr("language", ""), event.strOr("file_path", ""))
	if strings.TrimSpace(diff) != "" && looksLikeUnifiedDiff(diff) {
		body, truncated := limitedDiff(d.md.Highlighter(), diff, lang)
		lines = append(lines, body...)
		if truncated || truncatedHint {
			lines = append(lines, detailLine(convo.KindDiffMeta, detailIndent+"..."))
		}
		return lines
	}
	text := summary
	if strings.TrimSpace(text) == "" {
		text = diff
	}
	lines = append(lines, prefixBlock(detailIndent, detailIndent, convo.KindDiffMeta, convo.Detail, text)...)
	if truncatedHint {
		lines = append(lines, detailLine(convo.KindDiffMeta, detailIndent+"..."))
	}
	return lines
}

func laneDetails(lane, hints object, alive *bool) []string {
	var details []string
	if id := lane.strOr("lane_id", ""); id != "" {
		details = append(details, "lane: "+shortID(id))
	}
	if task := lane.strOr("task_id", ""); task != "" {
		details = append(details, "task: "+task)
	}
	state := lane.strOr("state", "unknown")
	switch {
	case alive == nil:
		details = append(details, "state: "+state)
	case *alive:
		details = append(details, "state: "+state+" (alive)")
	default:
		details = append(details, "state: "+state+" (stopped)")
	}
	if wt := lane.strOr("worktree_path", ""); wt != "" {
		details = append(details, "worktree: "+baseName(wt))
	}
	if attach := strings.TrimSpace(hints.strOr("attach_command", "")); attach != "" {
		details = append(details, "attach: "+attach)
	}
	return details
}

// laneResultLines renders lane_* tool results. It returns nil for other
// tools and for payloads that do not parse.
func laneResultLines(tool, raw, icon string, kind convo.Kind, failed bool) []convo.Line {
	if !strings.HasPrefix(tool, "lane_") {
		return nil
	}
	parsed := decodeObject([]byte(raw))
	if parsed == nil {
		return nil
	}
	detail := func(lines []convo.Line, texts ...string) []convo.Line {
		for _, t := range texts {
			lines = append(lines, detailLine(kind, detailIndent+t))
		}
		return lines
	}
	if failed {
		lines := []convo.Line{summaryLine(icon, tool+" failed", kind)}
		if msg, ok := parsed.str("message"); ok {
			lines = detail(lines, msg)
		}
		return lines
	}
	lane := parsed.obj("lane")
	switch tool {
	case "lane_create", "lane_close":
		if lane == nil {
			return nil
		}
		label := "lane created"
		if tool == "lane_close" {
			label = "lane closed"
		}
		return detail([]convo.Line{summaryLine(icon, label, kind)}, laneDetails(lane, parsed.obj("hints"), nil)...)
	case "lane_status":
		if lane == nil {
			return nil
		}
		var alive *bool
		if b, ok := parsed["backend_alive"].(bool); ok {
			alive = &b
		}
		label := "lane status: " + lane.strOr("state", "unknown")
		return detail([]convo.Line{summaryLine(icon, label, kind)}, laneDetails(lane, parsed.obj("hints"), alive)...)
	case "lane_list":
		lanes, _ := parsed["lanes"].([]any)
		var creating, running, finished, closed int
		for _, l := range lanes {
			m, _ := l.(map[string]any)
			switch object(m).strOr("state", "unknown") {
			case "creating":
				creating++
			case "running":
				running++
			case "finished", "error":
				finished++
			case "closed":
				closed++
			}
		}
		lines := []convo.Line{summaryLine(icon, fmt.Sprintf("lanes: %d", len(lanes)), kind)}
		return detail(lines, fmt.Sprintf("creating=%d running=%d finished/error=%d closed=%d", creating, running, finished, closed))
	case "lane_gc":
		lines := detail([]convo.Line{summaryLine(icon, "lane gc", kind)},
			fmt.Sprintf("checked=%d closed=%d skipped=%d", parsed.uintVal("checked"), parsed.uintVal("closed"), parsed.uintVal("skipped")))
		if errs, _ := parsed["errors"].([]any); len(errs) > 0 {
			lines = detail(lines, fmt.Sprintf("errors=%d", len(errs)))
		}
		return lines
	}
	return nil
}
