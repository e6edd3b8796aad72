package workspaces

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joshuarubin/go-sway"
	"go.uber.org/zap"
)

var ErrNoSocket = errors.New("SWAYSOCK is not set")

// Node is the part of a sway tree node the indicator looks at. Workspaces,
// outputs and windows are all nodes.
type Node struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Num    *int   `json:"num,omitempty"`
	Urgent bool   `json:"urgent"`
	// AppID is set on wayland windows, X11 windows only have a Class.
	AppID            string `json:"app_id"`
	WindowProperties struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []*Node `json:"nodes"`
	FloatingNodes []*Node `json:"floating_nodes"`
}

type Workspace struct {
	Num     int    `json:"num"`
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
	Urgent  bool   `json:"urgent"`
}

type Event struct {
	Change  string `json:"change"`
	Current *Node  `json:"current"`
	Old     *Node  `json:"old"`
}

// convert decodes the JSON form of a go-sway value, which mirrors the IPC
// reply, into the smaller types above.
func convert[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

// fillNums sets the number of workspace nodes that came without one. Like
// sway, the number is the leading digits of the name.
func fillNums(n *Node) {
	if n == nil {
		return
	}
	if n.Type == "workspace" && n.Num == nil {
		digits := len(n.Name) - len(strings.TrimLeft(n.Name, "0123456789"))
		num := -1
		if v, err := strconv.Atoi(n.Name[:digits]); err == nil {
			num = v
		}
		n.Num = &num
	}
	for _, child := range n.Nodes {
		fillNums(child)
	}
	for _, child := range n.FloatingNodes {
		fillNums(child)
	}
}

// windowManager is the window manager connection used by the indicator.
type windowManager interface {
	// Snapshot reads the workspaces and the tree.
	Snapshot(ctx context.Context) ([]Workspace, *Node, error)
	// Subscribe calls handle for every workspace event until ctx is
	// cancelled or the connection fails.
	Subscribe(ctx context.Context, handle func(context.Context, *Event)) error
}

type swayWM struct{}

func (swayWM) Snapshot(ctx context.Context) ([]Workspace, *Node, error) {
	// the client is closed with its context
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := sway.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	ws, err := client.GetWorkspaces(ctx)
	if err != nil {
		return nil, nil, err
	}
	tree, err := client.GetTree(ctx)
	if err != nil {
		return nil, nil, err
	}

	workspaces, err := convert[[]Workspace](ws)
	if err != nil {
		return nil, nil, err
	}
	root, err := convert[*Node](tree)
	if err != nil {
		return nil, nil, err
	}
	fillNums(root)
	return workspaces, root, nil
}

func (swayWM) Subscribe(ctx context.Context, handle func(context.Context, *Event)) error {
	h := eventHandler{EventHandler: sway.NoOpEventHandler(), handle: handle}
	return sway.Subscribe(ctx, h, sway.EventTypeWorkspace)
}

type eventHandler struct {
	sway.EventHandler
	handle func(context.Context, *Event)
}

func (h eventHandler) Workspace(ctx context.Context, e sway.WorkspaceEvent) {
	ev, err := convert[*Event](e)
	if err != nil {
		logger.With(zap.Error(err)).Warn("Failed to read workspace event")
		return
	}
	fillNums(ev.Current)
	fillNums(ev.Old)
	h.handle(ctx, ev)
}

// workspaceNodes collects every workspace node of a tree by number.
func workspaceNodes(root *Node) map[int]*Node {
	out := map[int]*Node{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Type == "workspace" && n.Num != nil {
			out[*n.Num] = n
			return
		}
		for _, child := range n.Nodes {
			walk(child)
		}
	}
	walk(root)
	return out
}

// appIDs lists the lower-cased application identifiers of every window below
// n, tiled or floating. X11 windows report their class.
func appIDs(n *Node) []string {
	var ids []string
	var walk func(n *Node)
	walk = func(n *Node) {
		switch {
		case n.AppID != "":
			ids = append(ids, strings.ToLower(n.AppID))
		case n.WindowProperties.Class != "":
			ids = append(ids, strings.ToLower(n.WindowProperties.Class))
		}
		for _, child := range n.Nodes {
			walk(child)
		}
		for _, child := range n.FloatingNodes {
			walk(child)
		}
	}
	walk(n)
	return ids
}

func socketSet() bool {
	return os.Getenv("SWAYSOCK") != ""
}
