package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// UTM33 projects between geographic coordinates (GRS80 / ETRS89) and
// EUREF89 UTM zone 33N, the projection of the Norwegian chart data.
//
// The zone is fixed rather than derived from the longitude: the national
// datasets use zone 33 for the whole country, including areas that fall in
// zones 32 to 35.
//
// The forward and inverse series are Krüger's n-series to third order,
// accurate to well under a millimetre within the zone.
var UTM33 = newTransverseMercator(15, 0.9996, 500000, 0)

type transverseMercator struct {
	lon0     float64 // central meridian, radians
	k0       float64
	falseE   float64
	falseN   float64
	a        float64 // rectifying radius
	n        float64
	alpha    [3]float64
	beta     [3]float64
	delta    [3]float64
	twoRootN float64
}

func newTransverseMercator(lon0Deg, k0, falseE, falseN float64) transverseMercator {
	const (
		semiMajor  = 6378137.0
		flattening = 1 / 298.257222101 // GRS80
	)

	n := flattening / (2 - flattening)
	n2, n3 := n*n, n*n*n

	return transverseMercator{
		lon0:   lon0Deg * math.Pi / 180,
		k0:     k0,
		falseE: falseE,
		falseN: falseN,
		a:      semiMajor / (1 + n) * (1 + n2/4 + n2*n2/64),
		n:      n,
		alpha: [3]float64{
			n/2 - 2*n2/3 + 5*n3/16,
			13*n2/48 - 3*n3/5,
			61 * n3 / 240,
		},
		beta: [3]float64{
			n/2 - 2*n2/3 + 37*n3/96,
			n2/48 + n3/15,
			17 * n3 / 480,
		},
		delta: [3]float64{
			2*n - 2*n2/3 - 2*n3,
			7*n2/3 - 8*n3/5,
			56 * n3 / 15,
		},
		twoRootN: 2 * math.Sqrt(n) / (1 + n),
	}
}

// Forward converts a [lon, lat] point in degrees to [easting, northing].
func (tm transverseMercator) Forward(lonLat orb.Point) orb.Point {
	phi := lonLat[1] * math.Pi / 180
	dLambda := lonLat[0]*math.Pi/180 - tm.lon0

	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - tm.twoRootN*math.Atanh(tm.twoRootN*sinPhi))
	xiP := math.Atan2(t, math.Cos(dLambda))
	etaP := math.Atanh(math.Sin(dLambda) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j, a := range tm.alpha {
		k := float64(2 * (j + 1))
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	return orb.Point{
		tm.falseE + tm.k0*tm.a*eta,
		tm.falseN + tm.k0*tm.a*xi,
	}
}

// Inverse converts an [easting, northing] point to [lon, lat] in degrees.
func (tm transverseMercator) Inverse(en orb.Point) orb.Point {
	xi := (en[1] - tm.falseN) / (tm.k0 * tm.a)
	eta := (en[0] - tm.falseE) / (tm.k0 * tm.a)

	xiP, etaP := xi, eta
	for j, b := range tm.beta {
		k := float64(2 * (j + 1))
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j, d := range tm.delta {
		phi += d * math.Sin(float64(2*(j+1))*chi)
	}
	lambda := tm.lon0 + math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	return orb.Point{lambda * 180 / math.Pi, phi * 180 / math.Pi}
}
