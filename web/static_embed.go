// ABOUTME: Embeds the dashboard stylesheet and the websocket client script.
package web

import "embed"

//go:embed static/css/*.css static/js/*.js
var StaticFS embed.FS
