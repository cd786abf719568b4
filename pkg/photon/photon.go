package photon

import "github.com/df07/go-photon-mapper/pkg/core"

// Photon records one surface interaction of a traced light packet
type Photon struct {
	Position      core.Vec3 // Where the bounce happened
	DirectionFrom core.Vec3 // Direction the photon was travelling when it arrived
	Energy        core.Vec3 // Energy carried after the bounce
	Bounce        int       // 0 = straight from the light
}

// New creates a photon record
func New(position, directionFrom, energy core.Vec3, bounce int) Photon {
	return Photon{
		Position:      position,
		DirectionFrom: directionFrom,
		Energy:        energy,
		Bounce:        bounce,
	}
}
