package core

import "github.com/signalsfoundry/station-placer/model"

// seqRand replays a fixed sequence of values, wrapping around.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func planetAt(name string, x, y, z float64, moonOrbits ...float64) model.Planet {
	p := model.Planet{Name: name, Position: model.Position{X: x, Y: y, Z: z}}
	for i, o := range moonOrbits {
		orbit := o
		p.Moons = append(p.Moons, model.Moon{Name: name + "-m" + string(rune('a'+i)), OrbitRadius: &orbit})
	}
	return p
}

func stationAt(id string, x, y, z float64) model.Station {
	return model.Station{ID: id, Name: id, Position: model.Position{X: x, Y: y, Z: z}}
}
