/*Command bio-track-prep converts a UCSC genome-database table dump
  into an annotation track for a reference with bare chromosome names
  (hs37d5 style): it fetches the table, renames the chromosome column,
  sorts by coordinate, and writes a bgzf compressed BED-like file plus
  its tabix index.

  Usage: bio-track-prep [flags] src dst

  src is an http(s) URL, an s3:// path, or a local path; gzip sources
  are decompressed on the fly.  dst is the output track path; the
  index is written to dst + ".tbi" unless -no-index is given.

  Example:
    bio-track-prep -layout=snp -rename=hs37d5 \
      https://hgdownload.soe.ucsc.edu/goldenPath/hg19/database/snp150.txt.gz \
      snp150.hs37d5.bed.gz
*/
package main
