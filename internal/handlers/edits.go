package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/jwebster45206/story-graph/pkg/story"
)

// EditCommand is one graph mutation. Which fields apply depends on Op.
type EditCommand struct {
	Op string `json:"op"`

	Type   story.StepType `json:"type,omitempty"`
	Data   editor.Patch   `json:"data,omitempty"`
	StepID string         `json:"stepId,omitempty"`
	NewID  string         `json:"newId,omitempty"`
	IDs    []string       `json:"ids,omitempty"`
	Source string         `json:"source,omitempty"`
	Target string         `json:"target,omitempty"`
	X      float64        `json:"x,omitempty"`
	Y      float64        `json:"y,omitempty"`
	Scene  string         `json:"scene,omitempty"`
	Force  bool           `json:"force,omitempty"`
}

// EditRequest applies Commands in order, starting in Scene.
type EditRequest struct {
	Scene    string        `json:"scene"`
	Commands []EditCommand `json:"commands"`
}

// EditResult reports what a command did.
type EditResult struct {
	Op      string   `json:"op"`
	StepID  string   `json:"stepId,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed int      `json:"changed,omitempty"`
}

type EditResponse struct {
	ID       string          `json:"id"`
	Scene    string          `json:"scene"`
	Results  []EditResult    `json:"results"`
	Problems []story.Problem `json:"problems"`
	Document story.Document  `json:"document"`
}

// handleEdits runs a batch of commands against the stored document. The
// batch is all or nothing: if any command fails, nothing is saved.
func (h *StoryHandler) handleEdits(w http.ResponseWriter, r *http.Request, id string) {
	var req EditRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid edit request: "+err.Error())
		return
	}
	if req.Scene == "" {
		req.Scene = story.DefaultSceneName
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	doc, err := h.storage.LoadStory(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load story")
		return
	}

	// Asset deletions are held until the batch has been saved.
	pending := &deferredSink{}
	ed, err := editor.New(doc, req.Scene)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to open scene")
		return
	}
	ed.WithLogger(h.logger.With("story_id", id)).WithAssetSink(pending).WithContext(r.Context())

	results := make([]EditResult, 0, len(req.Commands))
	for i, cmd := range req.Commands {
		res, err := applyCommand(ed, cmd)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadRequest
			}
			writeError(w, h.logger, status, fmt.Sprintf("command %d (%s): %v", i, cmd.Op, err))
			return
		}
		results = append(results, res)
	}

	if err := h.save(r.Context(), id, doc); err != nil {
		writeDomainError(w, h.logger, err, "Failed to save story")
		return
	}
	if h.assets != nil && len(pending.filenames) > 0 {
		h.assets(id).ScheduleAssetDeletion(r.Context(), pending.filenames)
	}

	writeJSON(w, h.logger, http.StatusOK, EditResponse{
		ID:       id,
		Scene:    ed.SceneName(),
		Results:  results,
		Problems: problemsOf(doc),
		Document: doc,
	})
}

func applyCommand(ed *editor.Editor, cmd EditCommand) (EditResult, error) {
	res := EditResult{Op: cmd.Op}
	var err error

	switch cmd.Op {
	case "addStep":
		res.StepID, err = ed.AddStep(cmd.Type, cmd.Data)
	case "updateStep":
		res.StepID = cmd.StepID
		err = ed.UpdateStepData(cmd.StepID, cmd.Data)
	case "renameStep":
		res.StepID = cmd.NewID
		err = ed.RenameStep(cmd.StepID, cmd.NewID)
	case "deleteSteps":
		res.Removed = ed.DeleteSteps(cmd.IDs...)
		res.Changed = len(res.Removed)
	case "connect":
		if ed.Connect(cmd.Source, cmd.Target) {
			res.Changed = 1
		}
	case "disconnect":
		res.Changed = ed.Disconnect(cmd.Source, cmd.Target)
	case "setNodePosition":
		res.StepID = cmd.StepID
		err = ed.SetNodePosition(cmd.StepID, cmd.X, cmd.Y)
	case "setStartingStep":
		res.StepID = cmd.StepID
		err = ed.SetStartingStep(cmd.StepID)
	case "layout":
		res.Changed = ed.Layout(cmd.Force)
	case "addScene":
		err = ed.AddScene(cmd.Scene)
	case "renameScene":
		err = ed.RenameScene(ed.SceneName(), cmd.Scene)
	case "deleteScene":
		err = ed.DeleteScene(cmd.Scene)
	case "switchScene":
		err = ed.SwitchScene(cmd.Scene)
	default:
		err = fmt.Errorf("unknown op %q", cmd.Op)
	}
	return res, err
}

type deferredSink struct {
	filenames []string
}

func (d *deferredSink) ScheduleAssetDeletion(_ context.Context, filenames []string) {
	d.filenames = append(d.filenames, filenames...)
}
