// rexscan/tools/inventory_gen/main.go

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type SecurityGroup struct {
	GroupId       string         `json:"GroupId"`
	GroupName     string         `json:"GroupName"`
	Description   string         `json:"Description"`
	IpPermissions []IpPermission `json:"IpPermissions"`
	PublicIp      *string        `json:"PublicIp"`
	PrivateIp     string         `json:"PrivateIp"`
}

type IpPermission struct {
	IpProtocol string    `json:"IpProtocol"`
	FromPort   int       `json:"FromPort"`
	ToPort     int       `json:"ToPort"`
	IpRanges   []IpRange `json:"IpRanges"`
}

type IpRange struct {
	CidrIp string `json:"CidrIp"`
}

type Bucket struct {
	Name           string `json:"Name"`
	CreationDate   string `json:"CreationDate"`
	PublicAccess   bool   `json:"PublicAccess"`
	Encrypted      bool   `json:"Encrypted"`
	LoggingEnabled bool   `json:"LoggingEnabled"`
}

type DBInstance struct {
	DBInstanceIdentifier string  `json:"DBInstanceIdentifier"`
	DBInstanceClass      string  `json:"DBInstanceClass"`
	Engine               string  `json:"Engine"`
	PubliclyAccessible   bool    `json:"PubliclyAccessible"`
	StorageEncrypted     bool    `json:"StorageEncrypted"`
	DBPortNumber         int     `json:"DBPortNumber"`
	PublicIp             *string `json:"PublicIp"`
	PrivateIp            string  `json:"PrivateIp"`
}

type Inventory struct {
	EC2Instances []SecurityGroup `json:"EC2Instances"`
	S3Buckets    []Bucket        `json:"S3Buckets"`
	RDSInstances []DBInstance    `json:"RDSInstances"`
}

var (
	protocols = []string{"tcp", "udp", "icmp", "-1"}
	ports     = []int{22, 80, 443, 3306, 5432, 6379, 8080}
	classes   = []string{"db.t3.micro", "db.m5.large", "db.r6g.xlarge"}
	engines   = []struct {
		name string
		port int
	}{{"postgres", 5432}, {"mysql", 3306}, {"mariadb", 3306}, {"aurora-postgresql", 5432}}
)

// risky reports true with the given probability.
func risky(f *gofakeit.Faker, p float32) bool {
	return f.Float32Range(0, 1) < p
}

func generateSecurityGroup(f *gofakeit.Faker, index int) SecurityGroup {
	sg := SecurityGroup{
		GroupId:     fmt.Sprintf("sg-%08x%d", f.Uint32(), index),
		GroupName:   f.AppName(),
		Description: f.Sentence(4),
		PrivateIp:   f.IPv4Address(),
	}
	for i := f.IntRange(0, 3); i > 0; i-- {
		port := ports[f.IntRange(0, len(ports)-1)]
		cidr := fmt.Sprintf("10.%d.0.0/16", f.IntRange(0, 255))
		if risky(f, 0.4) {
			cidr = "0.0.0.0/0"
		}
		sg.IpPermissions = append(sg.IpPermissions, IpPermission{
			IpProtocol: protocols[f.IntRange(0, len(protocols)-1)],
			FromPort:   port,
			ToPort:     port,
			IpRanges:   []IpRange{{CidrIp: cidr}},
		})
	}
	if sg.IpPermissions == nil {
		sg.IpPermissions = []IpPermission{}
	}
	if risky(f, 0.3) {
		ip := f.IPv4Address()
		sg.PublicIp = &ip
	}
	return sg
}

func generateBucket(f *gofakeit.Faker, index int) Bucket {
	return Bucket{
		Name:           fmt.Sprintf("%s-%s-%d", f.Word(), f.Word(), index),
		CreationDate:   f.DateRange(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
		PublicAccess:   risky(f, 0.25),
		Encrypted:      !risky(f, 0.3),
		LoggingEnabled: !risky(f, 0.5),
	}
}

func generateDBInstance(f *gofakeit.Faker, index int) DBInstance {
	engine := engines[f.IntRange(0, len(engines)-1)]

	db := DBInstance{
		DBInstanceIdentifier: fmt.Sprintf("%s-%d", f.Noun(), index),
		DBInstanceClass:      classes[f.IntRange(0, len(classes)-1)],
		Engine:               engine.name,
		PubliclyAccessible:   risky(f, 0.2),
		StorageEncrypted:     !risky(f, 0.3),
		DBPortNumber:         engine.port,
		PrivateIp:            f.IPv4Address(),
	}
	if db.PubliclyAccessible {
		ip := f.IPv4Address()
		db.PublicIp = &ip
	}
	return db
}

func generateInventory(f *gofakeit.Faker, n int) Inventory {
	inv := Inventory{
		EC2Instances: make([]SecurityGroup, n),
		S3Buckets:    make([]Bucket, n),
		RDSInstances: make([]DBInstance, n),
	}
	for i := 0; i < n; i++ {
		inv.EC2Instances[i] = generateSecurityGroup(f, i+1)
		inv.S3Buckets[i] = generateBucket(f, i+1)
		inv.RDSInstances[i] = generateDBInstance(f, i+1)
	}
	return inv
}

func parseFlags(args []string) (int, string, uint64) {
	fs := flag.NewFlagSet("inventory_gen", flag.ContinueOnError)
	count := fs.Int("count", 1000, "Number of resources to generate per category")
	outputFile := fs.String("output", "generated_inventory.json", "Output file name")
	seed := fs.Uint64("seed", 0, "Random seed (0 picks one from the clock)")
	fs.Parse(args)
	return *count, *outputFile, *seed
}

func main() {
	count, outputFile, seed := parseFlags(os.Args[1:])
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	inv := generateInventory(gofakeit.New(seed), count)

	file, err := os.Create(outputFile)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(inv); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d resources per category in %s\n", count, outputFile)
}
