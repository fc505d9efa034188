// Package format decodes runtime output lines into conversation log
// lines, status updates, RPC responses and dialog requests.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pkt.systems/codelia/internal/convo"
	"pkt.systems/codelia/internal/markdown"
	"pkt.systems/codelia/schema"
)

const runtimePrefix = "[runtime]"

// Output is everything one runtime line produced.
type Output struct {
	Lines []convo.Line
	// Status is set by run.status, with RunID when the runtime sent one.
	Status schema.RunStatus
	RunID  schema.RunID
	// ContextLeft is the context window percent left, capped at 100.
	ContextLeft *int
	// AssistantText and FinalText carry the raw markdown of text and
	// final events.
	AssistantText string
	FinalText     string
	Response      *schema.Response
	Confirm       *schema.ConfirmRequest
	Prompt        *schema.PromptRequest
	Pick          *schema.PickRequest
	// ToolCallID is set when a tool call starts.
	ToolCallID string
	// Err wraps schema.ErrProtocolViolation for malformed messages.
	Err error
}

// Decoder turns runtime lines into Output values.
type Decoder struct {
	// Cwd shortens absolute paths in tool summaries.
	Cwd string
	md  *markdown.Renderer
}

// NewDecoder returns a decoder rendering markdown with theme.
func NewDecoder(theme convo.Theme) *Decoder {
	cwd, _ := os.Getwd()
	return &Decoder{Cwd: cwd, md: markdown.NewRenderer(theme)}
}

type envelope struct {
	ID     json.RawMessage `json:"id"`
	Method *string         `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Decode classifies one line of runtime output. Blank lines produce an
// empty Output.
func (d *Decoder) Decode(raw string) Output {
	trimmed := strings.TrimRightFunc(raw, isSpace)
	if trimmed == "" {
		return Output{}
	}
	if strings.HasPrefix(trimmed, runtimePrefix) {
		return Output{Lines: []convo.Line{runtimeLogLine(trimmed)}}
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Output{Lines: []convo.Line{convo.NewLine(convo.KindRuntime, trimmed)}}
	}
	if env.Method != nil {
		if out, ok := d.notification(*env.Method, env); ok {
			return out
		}
	}
	if len(env.ID) > 0 && (len(env.Result) > 0 || len(env.Error) > 0) {
		return Output{Response: &schema.Response{
			ID:     schema.RequestID(idString(env.ID)),
			Result: env.Result,
			Error:  env.Error,
		}}
	}
	out := Output{Lines: []convo.Line{convo.NewLine(convo.KindRuntime, trimmed)}}
	if len(env.ID) > 0 && env.Method == nil {
		out.Err = fmt.Errorf("%w: id %s without result or error", schema.ErrProtocolViolation, idString(env.ID))
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// runtimeLogLine classifies a "[runtime]" stderr line.
func runtimeLogLine(trimmed string) convo.Line {
	body := strings.TrimLeftFunc(strings.TrimPrefix(trimmed, runtimePrefix), isSpace)
	if strings.HasPrefix(body, "mcp:") || strings.Contains(body, "mcp[") {
		lower := strings.ToLower(body)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
			return summaryLine("", body, convo.KindError)
		}
		return summaryLine("", body, convo.KindStatus)
	}
	if looksLikeRuntimeError(body) {
		return summaryLine("", body, convo.KindError)
	}
	return convo.NewLine(convo.KindRuntime, trimmed)
}

var runtimeErrorMarkers = []string{
	"panic", "exception", "traceback", "fatal", "segmentation fault",
	"cannot find module", "module_not_found", "enoent", "eacces",
	"syntaxerror", "typeerror", "referenceerror",
}

func looksLikeRuntimeError(body string) bool {
	lower := strings.ToLower(body)
	if strings.HasPrefix(lower, "error:") {
		return true
	}
	for _, m := range runtimeErrorMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// notification decodes a method-bearing message. ok is false for
// methods the decoder does not know, which fall through to the
// response and raw-line handling.
func (d *Decoder) notification(method string, env envelope) (Output, bool) {
	params := decodeObject(env.Params)
	switch method {
	case schema.MethodConfirmRequest:
		return Output{Confirm: &schema.ConfirmRequest{
			ID:            schema.RequestID(idString(env.ID)),
			Title:         params.strOr("title", "Confirm"),
			Message:       params.strOr("message", ""),
			DangerLevel:   params.strOr("danger_level", ""),
			ConfirmLabel:  params.strOr("confirm_label", ""),
			CancelLabel:   params.strOr("cancel_label", ""),
			AllowRemember: params.boolean("allow_remember"),
			AllowReason:   params.boolean("allow_reason"),
		}}, true
	case schema.MethodPromptRequest:
		req := &schema.PromptRequest{
			ID:        schema.RequestID(idString(env.ID)),
			Title:     params.strOr("title", "Prompt"),
			Message:   params.strOr("message", ""),
			Multiline: params.boolean("multiline"),
			Secret:    params.boolean("secret"),
		}
		if v, ok := params.str("default_value"); ok {
			req.DefaultValue = &v
		}
		return Output{Prompt: req}, true
	case schema.MethodPickRequest:
		req := &schema.PickRequest{
			ID:    schema.RequestID(idString(env.ID)),
			Title: params.strOr("title", "Pick"),
			Multi: params.boolean("multi"),
		}
		items, _ := params["items"].([]any)
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			item := object(m)
			req.Items = append(req.Items, schema.PickItem{
				ID:     item.strOr("id", ""),
				Label:  item.strOr("label", ""),
				Detail: item.strOr("detail", ""),
			})
		}
		return Output{Pick: req}, true
	case schema.MethodAgentEvent:
		return d.agentEvent(params.obj("event")), true
	case schema.MethodRunContext:
		var out Output
		if n, ok := params.intVal("context_left_percent"); ok && n >= 0 {
			pct := int(min(n, 100))
			out.ContextLeft = &pct
		}
		return out, true
	case schema.MethodRunDiagnostics:
		return Output{Lines: diagnosticsLines(params)}, true
	case schema.MethodRunStatus:
		return runStatus(params), true
	}
	return Output{}, false
}

func runStatus(params object) Output {
	status := params.strOr("status", "unknown")
	message := params.strOr("message", "")
	summaryKind, detailKind := convo.KindRuntime, convo.KindStatus
	if schema.RunStatus(status) == schema.RunError {
		summaryKind, detailKind = convo.KindError, convo.KindError
	}
	var line convo.Line
	if message == "" {
		line = convo.NewLine(summaryKind, "runtime status: "+status)
	} else {
		line = summaryAndDetail("", "runtime status: "+status+" -", message, summaryKind, detailKind)
	}
	out := Output{Lines: []convo.Line{line}, Status: schema.RunStatus(status)}
	if id, ok := params.str("run_id"); ok {
		out.RunID = schema.RunID(id)
	}
	return out
}

func (d *Decoder) agentEvent(event object) Output {
	kind := event.strOr("type", "event")
	switch kind {
	case "permission.preview":
		return Output{Lines: d.permissionPreviewLines(event)}
	case "permission.ready":
		tool := event.strOr("tool", "tool")
		return Output{Lines: []convo.Line{
			convo.Blank(),
			summaryLine("", "Review "+tool+" changes, then choose Allow or Deny", convo.KindStatus),
		}}
	case "text":
		content := event.strOr("content", "")
		if strings.HasPrefix(content, "Permission request raw args (") {
			return Output{}
		}
		return Output{Lines: d.assistantLines(content), AssistantText: content}
	case "final":
		content := event.strOr("content", "")
		return Output{Lines: d.assistantLines(content), FinalText: content}
	case "reasoning":
		content := event.strOr("content", "")
		if strings.TrimSpace(content) == "" {
			return Output{}
		}
		lines := []convo.Line{convo.Blank()}
		return Output{Lines: append(lines, prefixBlock("", "", convo.KindReasoning, convo.Detail, content)...)}
	case "step_start", "step_complete":
		return Output{}
	case "compaction_start":
		return Output{Lines: []convo.Line{summaryLine("", "compaction started", convo.KindRuntime)}}
	case "compaction_complete":
		label := "compaction skipped"
		if event.boolean("compacted") {
			label = "compaction completed"
		}
		return Output{Lines: []convo.Line{summaryLine("", label, convo.KindRuntime)}}
	case "tool_call":
		tool := event.strOr("tool", "tool")
		args, _ := json.Marshal(event["args"])
		label, detail := d.toolCallSummary(tool, args)
		spans := []convo.Span{convo.NewSpan(convo.KindToolCall, convo.Summary, label)}
		if detail != "" {
			spans = append(spans,
				convo.NewSpan(convo.KindToolCall, convo.Summary, " "),
				convo.NewSpan(convo.KindAssistant, convo.Summary, detail))
		}
		return Output{Lines: []convo.Line{convo.FromSpans(spans...)}, ToolCallID: event.strOr("tool_call_id", "")}
	case "tool_result":
		tool := event.strOr("tool", "tool")
		content, ok := event.str("result")
		if !ok {
			b, _ := json.Marshal(event["result"])
			content = string(b)
		}
		return Output{Lines: d.toolResultLines(tool, content, event.boolean("is_error"))}
	case "hidden_user_message":
		return Output{Lines: []convo.Line{convo.NewLine(convo.KindUser, "> "+event.strOr("content", ""))}}
	}
	return Output{Lines: []convo.Line{convo.NewLine(convo.KindRuntime, "event: "+kind)}}
}

// assistantLines renders text or final content as an indented block
// after a spacer.
func (d *Decoder) assistantLines(content string) []convo.Line {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	lines := []convo.Line{convo.Blank()}
	return append(lines, prefixRendered(detailIndent, detailIndent, d.md.Render(content), convo.Detail)...)
}

func diagnosticsLines(params object) []convo.Line {
	switch params.strOr("kind", "unknown") {
	case "llm_call":
		call := params.obj("call")
		usage := call.obj("usage")
		cache := call.obj("cache")
		in := usage.uintVal("input_tokens")
		read := cache.uintVal("cache_read_tokens")
		label := fmt.Sprintf("diag llm#%d %s", call.uintVal("seq"), call.strOr("model", "unknown"))
		detail := fmt.Sprintf("provider=%s latency=%dms stop=%s tok(in/out/total)=%s/%s/%s cache=%s read=%s (%s) create=%s",
			call.strOr("provider", "-"),
			call.uintVal("latency_ms"),
			call.strOr("stop_reason", "-"),
			commas(in), commas(usage.uintVal("output_tokens")), commas(usage.uintVal("total_tokens")),
			cache.strOr("hit_state", "unknown"),
			commas(read), percent(ratio(read, in)),
			commas(cache.uintVal("cache_creation_tokens")))
		if meta := call.strOr("provider_meta_summary", ""); meta != "" {
			detail += " meta=" + meta
		}
		return []convo.Line{summaryAndDetail("", label, detail, convo.KindStatus, convo.KindStatus)}
	case "run_summary":
		s := params.obj("summary")
		calls := s.uintVal("total_calls")
		in := s.uintVal("total_input_tokens")
		cached := s.uintVal("total_cached_input_tokens")
		var hit, miss, unknown uint64
		for _, v := range s.obj("by_model") {
			m, _ := v.(map[string]any)
			stats := object(m)
			n := stats.uintVal("calls")
			switch {
			case n == 0:
			case stats.uintVal("cached_input_tokens") > 0:
				hit += n
			case stats.uintVal("input_tokens") > 0:
				miss += n
			default:
				unknown += n
			}
		}
		if counted := hit + miss + unknown; counted < calls {
			unknown += calls - counted
		}
		detail := fmt.Sprintf("calls=%d tok(in/out/total)=%s/%s/%s cache(read/create)=%s/%s (%s) calls(hit/miss/unknown)=%d/%d/%d",
			calls,
			commas(in), commas(s.uintVal("total_output_tokens")), commas(s.uintVal("total_tokens")),
			commas(cached), commas(s.uintVal("total_cache_creation_tokens")),
			percent(ratio(cached, in)),
			hit, miss, unknown)
		return []convo.Line{summaryAndDetail("", "diag run summary", detail, convo.KindStatus, convo.KindStatus)}
	}
	return nil
}

// FormatRPCError renders a response error for the error report, as
// "{scope} error: {message} (code N)" plus the pretty JSON detail.
func FormatRPCError(scope string, raw json.RawMessage) (string, string) {
	var e schema.RPCError
	_ = json.Unmarshal(raw, &e)
	message := e.Message
	if message == "" {
		message = "unknown error"
	}
	summary := scope + " error: " + message
	if e.Code != nil {
		summary += " (code " + strconv.FormatInt(*e.Code, 10) + ")"
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return summary, string(raw)
	}
	return summary, pretty.String()
}
