package web

type FrontendData struct {
	// Live pages stream views over a websocket instead of loading PNGs.
	Live       bool       `json:"live"`
	Background string     `json:"background"`
	Accent     string     `json:"accent"`
	Views      []ViewData `json:"views"`
}

type ViewData struct {
	Name          string `json:"name"`
	Image         string `json:"image"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	MaxIterations int    `json:"maxIterations"`
	Viewport      string `json:"viewport"`
}
