package kinematics

import "github.com/golang/geo/s1"

// Odometry integrates wheel travel and gyro heading into a world-frame pose.
//
// Update must run exactly once per control cycle; the previous module
// positions are the baseline for the next delta.
type Odometry struct {
	kin *Kinematics

	pose          Pose2D
	prevPositions [NumModules]ModulePosition
	prevGyro      s1.Angle
	gyroOffset    s1.Angle
	lastTwist     Twist2D
}

// NewOdometry starts tracking from initial with the current sensor readings as baseline.
func NewOdometry(kin *Kinematics, gyro s1.Angle, positions [NumModules]ModulePosition, initial Pose2D) *Odometry {
	o := &Odometry{kin: kin}
	o.ResetPosition(gyro, positions, initial)
	return o
}

// Pose returns the current estimate.
func (o *Odometry) Pose() Pose2D {
	return o.pose
}

// LastTwist returns the body displacement applied by the most recent Update.
func (o *Odometry) LastTwist() Twist2D {
	return o.lastTwist
}

// GyroOffset is the angle added to the gyro reading to get the heading.
func (o *Odometry) GyroOffset() s1.Angle {
	return o.gyroOffset
}

// ResetPosition overwrites the pose and the delta baseline together.
func (o *Odometry) ResetPosition(gyro s1.Angle, positions [NumModules]ModulePosition, pose Pose2D) {
	o.pose = pose.WithHeading(pose.Heading)
	o.gyroOffset = pose.Heading - gyro
	o.prevGyro = gyro
	o.prevPositions = positions
	o.lastTwist = Twist2D{}
}

// Update advances the pose with this cycle's readings and returns it.
//
// Translation comes from the wheel deltas solved in the body frame and
// rotated by the previous heading. The new heading comes from the gyro.
func (o *Odometry) Update(gyro s1.Angle, positions [NumModules]ModulePosition) Pose2D {
	var deltas [NumModules]ModulePosition
	for i, p := range positions {
		deltas[i] = ModulePosition{
			Distance: p.Distance - o.prevPositions[i].Distance,
			Angle:    p.Angle,
		}
	}

	twist := o.kin.ToTwist(deltas)
	twist.Dtheta = (gyro - o.prevGyro).Normalized()

	d := RotateBy(Vec(twist.Dx, twist.Dy), o.pose.Heading)
	o.pose = Pose2D{
		Translation: o.pose.Translation.Add(d),
		Heading:     (gyro + o.gyroOffset).Normalized(),
	}

	o.prevGyro = gyro
	o.prevPositions = positions
	o.lastTwist = twist
	return o.pose
}
