package eventstore

import (
	"fmt"

	"github.com/hgcal-tools/simchain/tracktree"
)

// GenParticle is one generator-level particle.
type GenParticle struct {
	PDGID    int
	Status   int
	Momentum tracktree.FourVector
}

func (p GenParticle) String() string {
	return fmt.Sprintf("<pdgid=%-5d E=%-7.2f pt=%-7.2f eta=%-7.2f phi=%-7.2f status=%-3d>",
		p.PDGID, p.Momentum.E, p.Momentum.Pt(), p.Momentum.Eta(), p.Momentum.Phi(), p.Status)
}
