package constellation

// Palette is the fixed cluster color cycle.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57",
	"#FF9FF3", "#54A0FF", "#48DBFB", "#1DD1A1", "#FFA502",
	"#FF7675", "#74B9FF", "#A29BFE", "#FD79A8", "#FDCB6E",
}

// ColorFor returns the color of a cluster id.
func ColorFor(clusterID int) string {
	i := clusterID % len(Palette)
	if i < 0 {
		i += len(Palette)
	}
	return Palette[i]
}

// PointSize scales a job marker by its text length, clamped to [2, 8].
func PointSize(textLen int) float64 {
	return max(2, min(8, float64(textLen)/500))
}
