package usage

import "fmt"

// Point is one chart sample.
type Point struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// BuildHourlyPoints expands the view into one point per hour of each
// selected day, in day-then-hour order. Days missing from the
// hour-of-day map contribute 24 zero points so the series stays
// continuous.
func BuildHourlyPoints(agg *Aggregate, view RangedView) []Point {
	if view.Empty() {
		return nil
	}
	points := make([]Point, 0, view.Len()*24)
	for _, day := range view.Labels {
		hours := agg.HourlyDaily[day]
		for h := 0; h < 24; h++ {
			var v int64
			if h < len(hours) {
				v = hours[h]
			}
			points = append(points, Point{
				Label: fmt.Sprintf("(%s, %d)", day, h),
				Value: v,
			})
		}
	}
	return points
}

// CompressPoints downsamples a series to at most maxPoints buckets by
// summing fixed-size runs. Each bucket takes the label of its last
// point, so the total mass and the left-to-right order are preserved.
func CompressPoints(points []Point, maxPoints int) []Point {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}

	bucketSize := (len(points) + maxPoints - 1) / maxPoints
	out := make([]Point, 0, (len(points)+bucketSize-1)/bucketSize)
	for i := 0; i < len(points); i += bucketSize {
		end := i + bucketSize
		if end > len(points) {
			end = len(points)
		}
		var sum int64
		for _, p := range points[i:end] {
			sum += p.Value
		}
		out = append(out, Point{Label: points[end-1].Label, Value: sum})
	}
	return out
}
