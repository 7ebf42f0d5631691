/*Command bio-track-query prints the records of a prepared annotation
  track overlapping the given regions, using the track's tabix index
  for random access.  Regions are samtools style: "chrom",
  "chrom:pos", or "chrom:first-last" with 1-based inclusive positions.

  Usage: bio-track-query [flags] track.bed.gz [region ...]

  With -refs the chromosome names in the track are listed instead.
  With -checksum the seahash of the uncompressed payload is printed,
  for comparison against the value bio-track-prep reported.

  Example: bio-track-query snp150.hs37d5.bed.gz 1:10000-20000
*/
package main
